package domain

// Archive is a zipped model directory.
type Archive struct {
	Model string `json:"model"`
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
}

// Summary describes what a single run did.
type Summary struct {
	BaseDir      string `json:"base_dir"`
	MetadataFile string `json:"metadata_file"`

	TotalPredictions int `json:"total_predictions"`
	Succeeded        int `json:"succeeded"`
	Failed           int `json:"failed"`
	Canceled         int `json:"canceled"`

	ModelCount int            `json:"model_count"`
	Downloaded int            `json:"downloaded"`
	Skipped    int            `json:"skipped"`
	Errors     int            `json:"errors"`
	Stats      *DownloadStats `json:"stats"`
	Archives   []Archive      `json:"archives,omitempty"`

	StateSaved bool `json:"state_saved"`
}

// Empty reports whether the run found nothing to process.
func (s *Summary) Empty() bool {
	return s.TotalPredictions == 0
}
