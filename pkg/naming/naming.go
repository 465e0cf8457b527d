package naming

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/closestfriend/replicate-predictions-downloader/pkg/domain"
)

const (
	DefaultMaxPromptLength = 50

	UnknownModel     = "unknown-model"
	NoPrompt         = "no-prompt"
	UnknownDate      = "unknown-date"
	DefaultExtension = "bin"

	shortIDLength = 8
)

// promptKeys are checked in order before falling back to any string input.
var promptKeys = []string{"prompt", "text", "description", "input_text", "query"}

var (
	disallowedChars = regexp.MustCompile(`[^a-zA-Z0-9\-_\s]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

type Namer struct {
	maxPromptLength int
}

func NewNamer(maxPromptLength int) *Namer {
	if maxPromptLength <= 0 {
		maxPromptLength = DefaultMaxPromptLength
	}
	return &Namer{maxPromptLength: maxPromptLength}
}

// ModelName derives the grouping key of a prediction from, in order, the
// model field, an expanded version's model, and the segment following
// "models" in the get URL.
func ModelName(p domain.Prediction) string {
	if p.Model != "" {
		return lastSegment(p.Model)
	}
	if m := p.VersionModel(); m != "" {
		return lastSegment(m)
	}
	if get := p.URLs["get"]; get != "" {
		parts := strings.Split(get, "/")
		for i, part := range parts {
			if part == "models" && i+1 < len(parts) && parts[i+1] != "" {
				return parts[i+1]
			}
		}
	}
	return UnknownModel
}

func lastSegment(s string) string {
	parts := strings.Split(s, "/")
	return parts[len(parts)-1]
}

// PromptSummary returns a filename-safe summary of the prediction's prompt.
func (n *Namer) PromptSummary(p domain.Prediction) string {
	for _, key := range promptKeys {
		if s, ok := p.Input.String(key); ok && s != "" {
			return n.summary(s)
		}
	}

	for _, f := range p.Input.Fields() {
		s, ok := f.Value.(string)
		if !ok {
			continue
		}
		if l := utf8.RuneCountInString(s); l > 5 && l < 200 {
			return n.summary(s)
		}
	}

	return NoPrompt
}

func (n *Namer) summary(s string) string {
	if out := n.Sanitize(s); out != "" {
		return out
	}
	return NoPrompt
}

// Sanitize keeps letters, digits, '-', '_' and whitespace, turns whitespace
// runs into '-', lowercases and truncates.
func (n *Namer) Sanitize(s string) string {
	s = disallowedChars.ReplaceAllString(s, "")
	s = whitespaceRuns.ReplaceAllString(s, "-")
	s = strings.ToLower(s)
	if len(s) > n.maxPromptLength {
		s = s[:n.maxPromptLength]
	}
	return s
}

// FileName builds {date}_{model}_{prompt}_{shortid}[_{index+1}].{ext}.
func (n *Namer) FileName(p domain.Prediction, index int, extension string) string {
	date := UnknownDate
	if p.HasTimestamp() {
		date = p.CreatedAt.UTC().Format("2006-01-02")
	}

	id := p.ID
	if len(id) > shortIDLength {
		id = id[:shortIDLength]
	}

	suffix := ""
	if index > 0 {
		suffix = fmt.Sprintf("_%d", index+1)
	}

	return fmt.Sprintf("%s_%s_%s_%s%s.%s", date, ModelName(p), n.PromptSummary(p), id, suffix, extension)
}

// Extension returns the text after the last '.' of the URL's final path
// segment, or DefaultExtension.
func Extension(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	base := path.Base(p)
	i := strings.LastIndex(base, ".")
	if i < 0 || i == len(base)-1 {
		return DefaultExtension
	}
	return base[i+1:]
}
