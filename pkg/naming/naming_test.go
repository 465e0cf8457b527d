package naming

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/closestfriend/replicate-predictions-downloader/pkg/domain"
)

func prediction(t *testing.T, raw string) domain.Prediction {
	t.Helper()
	var p domain.Prediction
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal prediction: %v", err)
	}
	return p
}

func TestModelName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"model field", `{"id":"1","model":"black-forest-labs/flux-schnell"}`, "flux-schnell"},
		{"model field without owner", `{"id":"1","model":"sdxl"}`, "sdxl"},
		{"version object", `{"id":"1","version":{"id":"v1","model":"stability-ai/sdxl"}}`, "sdxl"},
		{"version string ignored", `{"id":"1","version":"5c7d5dc6dd8bf75c1acaa8565735e7986bc5b66206b55cca93cb72c9bf15ccaa","urls":{"get":"https://api.replicate.com/v1/models/whisper/predictions/1"}}`, "whisper"},
		{"get url", `{"id":"1","urls":{"get":"https://api.replicate.com/v1/models/llama/x"}}`, "llama"},
		{"get url without models", `{"id":"1","urls":{"get":"https://api.replicate.com/v1/predictions/abc"}}`, UnknownModel},
		{"get url ending in models", `{"id":"1","urls":{"get":"https://api.replicate.com/v1/models/"}}`, UnknownModel},
		{"nothing", `{"id":"1"}`, UnknownModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ModelName(prediction(t, tt.raw)); got != tt.want {
				t.Errorf("ModelName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPromptSummary(t *testing.T) {
	n := NewNamer(DefaultMaxPromptLength)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"prompt key", `{"id":"1","input":{"seed":1,"prompt":"A Cat in Space!"}}`, "a-cat-in-space"},
		{"priority order", `{"id":"1","input":{"query":"the query","text":"the text"}}`, "the-text"},
		{"empty prompt skipped", `{"id":"1","input":{"prompt":"","description":"nice view"}}`, "nice-view"},
		{"first plausible string in order", `{"id":"1","input":{"mode":"fast","caption":"sunset over hills","style":"oil painting"}}`, "sunset-over-hills"},
		{"too short strings ignored", `{"id":"1","input":{"a":"12345","b":7}}`, NoPrompt},
		{"no input", `{"id":"1"}`, NoPrompt},
		{"sanitizes to empty", `{"id":"1","input":{"prompt":"!!!???"}}`, NoPrompt},
		{"collapses whitespace", `{"id":"1","input":{"prompt":"  two\t\tspaces  here "}}`, "-two-spaces-here-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.PromptSummary(prediction(t, tt.raw)); got != tt.want {
				t.Errorf("PromptSummary() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("truncated to max length", func(t *testing.T) {
		long := strings.Repeat("word ", 40)
		p := prediction(t, `{"id":"1","input":{"prompt":"`+long+`"}}`)
		got := n.PromptSummary(p)
		if len(got) != DefaultMaxPromptLength {
			t.Errorf("len(PromptSummary()) = %d, want %d", len(got), DefaultMaxPromptLength)
		}
	})

	t.Run("custom max length", func(t *testing.T) {
		p := prediction(t, `{"id":"1","input":{"prompt":"abcdefghij"}}`)
		if got := NewNamer(4).PromptSummary(p); got != "abcd" {
			t.Errorf("PromptSummary() = %q, want %q", got, "abcd")
		}
	})
}

func TestFileName(t *testing.T) {
	n := NewNamer(DefaultMaxPromptLength)
	p := prediction(t, `{
		"id": "abcdefghijklmnop",
		"model": "owner/flux",
		"created_at": "2024-03-05T23:30:00.123456Z",
		"input": {"prompt": "Red Fox"}
	}`)

	if got, want := n.FileName(p, 0, "png"), "2024-03-05_flux_red-fox_abcdefgh.png"; got != want {
		t.Errorf("FileName(0) = %q, want %q", got, want)
	}
	if got, want := n.FileName(p, 2, "webp"), "2024-03-05_flux_red-fox_abcdefgh_3.webp"; got != want {
		t.Errorf("FileName(2) = %q, want %q", got, want)
	}

	t.Run("deterministic and distinct per index", func(t *testing.T) {
		seen := map[string]int{}
		for i := 0; i < 20; i++ {
			name := n.FileName(p, i, "png")
			if again := n.FileName(p, i, "png"); again != name {
				t.Fatalf("FileName(%d) not stable: %q vs %q", i, name, again)
			}
			if prev, ok := seen[name]; ok {
				t.Fatalf("FileName(%d) collides with index %d: %q", i, prev, name)
			}
			seen[name] = i
		}
	})

	t.Run("short id and missing date", func(t *testing.T) {
		q := prediction(t, `{"id":"xyz"}`)
		if got, want := n.FileName(q, 0, "bin"), "unknown-date_unknown-model_no-prompt_xyz.bin"; got != want {
			t.Errorf("FileName() = %q, want %q", got, want)
		}
	})
}

func TestExtension(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://x/y/img.png", "png"},
		{"https://replicate.delivery/pbxt/abc/out-0.webp?X-Amz-Signature=1.2", "webp"},
		{"https://x/archive.tar.gz", "gz"},
		{"https://x/y/noext", DefaultExtension},
		{"https://x.example.com/", DefaultExtension},
		{"https://x/y/trailingdot.", DefaultExtension},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := Extension(tt.url); got != tt.want {
				t.Errorf("Extension(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}
