package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/closestfriend/replicate-predictions-downloader/pkg/domain"
	"github.com/russross/blackfriday"
)

const htmlFileName = "index.html"

// Markdown renders the summary as a markdown document. Links to model
// directories and archives are relative to BaseDir.
func Markdown(s *domain.Summary, generatedAt time.Time) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Replicate predictions export\n\n")
	fmt.Fprintf(&sb, "Generated %s.\n\n", generatedAt.UTC().Format(time.RFC1123))

	sb.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Predictions | %d |\n", s.TotalPredictions)
	fmt.Fprintf(&sb, "| Models | %d |\n", s.ModelCount)
	fmt.Fprintf(&sb, "| Files downloaded | %d |\n", s.Downloaded)
	fmt.Fprintf(&sb, "| Files skipped | %d |\n", s.Skipped)
	fmt.Fprintf(&sb, "| Errors | %d |\n", s.Errors)
	var total int64
	if s.Stats != nil {
		total = s.Stats.TotalBytes
	}
	fmt.Fprintf(&sb, "| Total size | %s |\n\n", FormatSize(total))

	if lines := Breakdown(s.Stats); len(lines) > 0 {
		sb.WriteString("## Models\n\n| Model | Files | Size |\n|---|---|---|\n")
		for _, l := range lines {
			fmt.Fprintf(&sb, "| [%s](by-model/%s/) | %d | %s |\n", l.Model, l.Model, l.Files, FormatSize(l.Bytes))
		}
		sb.WriteString("\n")
	}

	if len(s.Archives) > 0 {
		sb.WriteString("## Archives\n\n")
		for _, a := range s.Archives {
			rel, err := filepath.Rel(s.BaseDir, a.Path)
			if err != nil {
				rel = a.Path
			}
			fmt.Fprintf(&sb, "- [%s](%s) (%s)\n", a.Model, filepath.ToSlash(rel), FormatSize(a.Bytes))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Predictions\n\n")
	fmt.Fprintf(&sb, "- Succeeded: %d\n- Failed: %d\n- Canceled: %d\n", s.Succeeded, s.Failed, s.Canceled)

	return sb.String()
}

// WriteHTML writes {BaseDir}/index.html and returns its path.
func WriteHTML(s *domain.Summary, generatedAt time.Time) (string, error) {
	body := blackfriday.MarkdownCommon([]byte(Markdown(s, generatedAt)))

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	sb.WriteString("<title>Replicate predictions export</title>\n</head>\n<body>\n")
	sb.Write(body)
	sb.WriteString("</body>\n</html>\n")

	path := filepath.Join(s.BaseDir, htmlFileName)
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return "", fmt.Errorf("writing html report: %w", err)
	}
	return path, nil
}
