package domain

import "time"

// RunState is the only durable record: what the last successful run saw.
type RunState struct {
	LastSuccessfulRun     *time.Time `json:"lastSuccessfulRun"`
	TotalPredictions      int        `json:"totalPredictions"`
	SuccessfulPredictions int        `json:"successfulPredictions"`
}

type ModelDownloadStats struct {
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`
}

// DownloadStats is rebuilt on every run and never persisted.
type DownloadStats struct {
	TotalFiles int                            `json:"total_files"`
	TotalBytes int64                          `json:"total_bytes"`
	ByModel    map[string]*ModelDownloadStats `json:"by_model"`
}

func NewDownloadStats() *DownloadStats {
	return &DownloadStats{ByModel: make(map[string]*ModelDownloadStats)}
}

func (s *DownloadStats) Add(model string, bytes int64) {
	s.TotalFiles++
	s.TotalBytes += bytes

	m, ok := s.ByModel[model]
	if !ok {
		m = &ModelDownloadStats{}
		s.ByModel[model] = m
	}
	m.Files++
	m.Bytes += bytes
}
