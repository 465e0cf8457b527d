package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

type PredictionStatus string

const (
	PredictionStatusStarting   PredictionStatus = "starting"
	PredictionStatusQueued     PredictionStatus = "queued"
	PredictionStatusProcessing PredictionStatus = "processing"
	PredictionStatusSucceeded  PredictionStatus = "succeeded"
	PredictionStatusFailed     PredictionStatus = "failed"
	PredictionStatusCanceled   PredictionStatus = "canceled"
)

// Prediction is one record of the predictions listing. It is read-only once
// decoded; Raw keeps the record exactly as the API returned it.
type Prediction struct {
	ID        string            `json:"id"`
	Model     string            `json:"model,omitempty"`
	Version   json.RawMessage   `json:"version,omitempty"`
	Status    PredictionStatus  `json:"status"`
	CreatedAt time.Time         `json:"-"`
	URLs      map[string]string `json:"-"`
	Input     Object            `json:"input"`
	Output    Output            `json:"output"`
	Raw       json.RawMessage   `json:"-"`
}

// HasTimestamp reports whether created_at was present and parseable.
func (p Prediction) HasTimestamp() bool {
	return !p.CreatedAt.IsZero()
}

// VersionModel returns the model reference of an expanded version object.
func (p Prediction) VersionModel() string {
	v := bytes.TrimSpace(p.Version)
	if len(v) == 0 || v[0] != '{' {
		return ""
	}
	var version struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(v, &version); err != nil {
		return ""
	}
	return version.Model
}

// UnmarshalJSON is lenient with the loosely typed fields: a created_at that
// is not a timestamp string decodes to the zero time and non-string urls are
// dropped.
func (p *Prediction) UnmarshalJSON(data []byte) error {
	type alias Prediction
	var aux struct {
		alias
		CreatedAt json.RawMessage `json:"created_at"`
		URLs      json.RawMessage `json:"urls"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*p = Prediction(aux.alias)
	var createdAt string
	if json.Unmarshal(aux.CreatedAt, &createdAt) == nil {
		p.CreatedAt = parseTimestamp(createdAt)
	}

	var urls map[string]any
	if json.Unmarshal(aux.URLs, &urls) == nil && len(urls) > 0 {
		p.URLs = make(map[string]string, len(urls))
		for k, v := range urls {
			if s, ok := v.(string); ok {
				p.URLs[k] = s
			}
		}
	}
	p.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func (p Prediction) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}

	type alias Prediction
	aux := struct {
		alias
		CreatedAt *string           `json:"created_at"`
		URLs      map[string]string `json:"urls,omitempty"`
	}{alias: alias(p), URLs: p.URLs}
	if p.HasTimestamp() {
		s := p.CreatedAt.UTC().Format(time.RFC3339Nano)
		aux.CreatedAt = &s
	}
	return json.Marshal(aux)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
