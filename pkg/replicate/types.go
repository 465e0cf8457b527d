package replicate

import "github.com/closestfriend/replicate-predictions-downloader/pkg/domain"

// PredictionsPage is one page of GET /predictions. Next is empty on the last
// page.
type PredictionsPage struct {
	Previous string              `json:"previous,omitempty"`
	Next     string              `json:"next,omitempty"`
	Results  []domain.Prediction `json:"results"`
}
