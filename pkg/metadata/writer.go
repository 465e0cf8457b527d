// Package metadata writes the per-run JSON snapshot of fetched predictions.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/closestfriend/replicate-predictions-downloader/pkg/domain"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/naming"
	"github.com/samber/lo"
)

const filePrefix = "replicate_metadata_"

type ModelStats struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Canceled  int `json:"canceled"`
}

type PredictionSummary struct {
	ID            string            `json:"id"`
	CreatedAt     *time.Time        `json:"created_at"`
	Status        string            `json:"status"`
	Input         domain.Object     `json:"input"`
	PromptSummary string            `json:"prompt_summary"`
	HasOutput     bool              `json:"has_output"`
	URLs          map[string]string `json:"urls,omitempty"`
}

type Snapshot struct {
	ExportedAt         time.Time                      `json:"exported_at"`
	TotalPredictions   int                            `json:"total_predictions"`
	ModelStats         map[string]*ModelStats         `json:"model_stats"`
	PredictionsByModel map[string][]PredictionSummary `json:"predictions_by_model"`
	RawPredictions     []domain.Prediction            `json:"raw_predictions"`
}

type Writer struct {
	dir   string
	namer *naming.Namer
	now   func() time.Time
}

func NewWriter(dir string, namer *naming.Namer, now func() time.Time) *Writer {
	if now == nil {
		now = time.Now
	}
	return &Writer{dir: dir, namer: namer, now: now}
}

// FileName is the snapshot path for the current day. Runs on the same day
// share it.
func (w *Writer) FileName() string {
	return filepath.Join(w.dir, filePrefix+w.now().UTC().Format("2006-01-02")+".json")
}

func (w *Writer) Build(predictions []domain.Prediction) Snapshot {
	grouped := lo.GroupBy(predictions, naming.ModelName)

	snap := Snapshot{
		ExportedAt:         w.now().UTC(),
		TotalPredictions:   len(predictions),
		ModelStats:         make(map[string]*ModelStats, len(grouped)),
		PredictionsByModel: make(map[string][]PredictionSummary, len(grouped)),
		RawPredictions:     predictions,
	}
	if snap.RawPredictions == nil {
		snap.RawPredictions = []domain.Prediction{}
	}

	for model, preds := range grouped {
		stats := &ModelStats{Total: len(preds)}
		for _, p := range preds {
			switch p.Status {
			case domain.PredictionStatusSucceeded:
				stats.Succeeded++
			case domain.PredictionStatusFailed:
				stats.Failed++
			case domain.PredictionStatusCanceled:
				stats.Canceled++
			}
		}
		snap.ModelStats[model] = stats

		snap.PredictionsByModel[model] = lo.Map(preds, func(p domain.Prediction, _ int) PredictionSummary {
			return w.summarize(p)
		})
	}

	return snap
}

func (w *Writer) summarize(p domain.Prediction) PredictionSummary {
	s := PredictionSummary{
		ID:            p.ID,
		Status:        string(p.Status),
		Input:         p.Input,
		PromptSummary: w.namer.PromptSummary(p),
		HasOutput:     p.Output.Present(),
		URLs:          p.URLs,
	}
	if p.HasTimestamp() {
		s.CreatedAt = lo.ToPtr(p.CreatedAt)
	}
	return s
}

// Write stores the snapshot and returns its file name.
func (w *Writer) Write(predictions []domain.Prediction) (string, error) {
	data, err := json.MarshalIndent(w.Build(predictions), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}

	if w.dir != "" {
		if err := os.MkdirAll(w.dir, 0755); err != nil {
			return "", fmt.Errorf("creating metadata directory: %w", err)
		}
	}

	filename := w.FileName()
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("writing metadata: %w", err)
	}
	return filename, nil
}
