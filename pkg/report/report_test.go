package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/closestfriend/replicate-predictions-downloader/pkg/domain"
	"github.com/google/go-cmp/cmp"
)

func testSummary(dir string) *domain.Summary {
	stats := domain.NewDownloadStats()
	stats.Add("whisper", 2048)
	stats.Add("flux", 1024)
	stats.Add("flux", 1024)
	stats.Add("sdxl", 10)
	stats.Add("sdxl", 10)

	return &domain.Summary{
		BaseDir:          dir,
		MetadataFile:     "replicate_metadata_2024-07-04.json",
		TotalPredictions: 7,
		Succeeded:        5,
		Failed:           1,
		Canceled:         1,
		ModelCount:       3,
		Downloaded:       5,
		Errors:           1,
		Stats:            stats,
		Archives:         []domain.Archive{{Model: "flux", Path: filepath.Join(dir, "by-model", "flux.zip"), Bytes: 900}},
		StateSaved:       true,
	}
}

func TestBreakdown(t *testing.T) {
	got := Breakdown(testSummary("out").Stats)
	want := []ModelLine{
		{Model: "flux", Files: 2, Bytes: 2048},
		{Model: "sdxl", Files: 2, Bytes: 20},
		{Model: "whisper", Files: 1, Bytes: 2048},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Breakdown() mismatch (-want +got):\n%s", diff)
	}

	if Breakdown(nil) != nil {
		t.Error("Breakdown(nil) != nil")
	}
}

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		0:           "0 B",
		512:         "512 B",
		1536:        "1.5 KiB",
		5 * 1 << 20: "5.0 MiB",
		-1:          "0 B",
	}
	for in, want := range tests {
		if got := FormatSize(in); got != want {
			t.Errorf("FormatSize(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestConsolePrint(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf, true).Print(testSummary("out"))
	out := buf.String()

	for _, want := range []string{
		"Files organized in: out/",
		"Models processed:   3",
		"Errors:             1",
		"Total size:         4.0 KiB",
		"  flux: 2 files (2.0 KiB)",
		"  Failed:     1",
		"State saved",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if strings.Index(out, "flux:") > strings.Index(out, "whisper:") {
		t.Error("breakdown not sorted by file count")
	}

	buf.Reset()
	NewConsole(&buf, true).Print(&domain.Summary{})
	if got := strings.TrimSpace(buf.String()); got != "No predictions found!" {
		t.Errorf("empty summary output = %q", got)
	}
}

func TestWriteHTML(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteHTML(testSummary(dir), time.Date(2024, 7, 4, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("WriteHTML() error = %v", err)
	}
	if path != filepath.Join(dir, "index.html") {
		t.Errorf("WriteHTML() = %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	html := string(data)
	for _, want := range []string{
		"<h1>Replicate predictions export</h1>",
		`<a href="by-model/flux/">flux</a>`,
		`<a href="by-model/flux.zip">flux</a>`,
		"<table>",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q:\n%s", want, html)
		}
	}
}
