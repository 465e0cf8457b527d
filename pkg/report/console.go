// Package report renders a run summary for people: a colored console block
// and a markdown page converted to HTML next to the downloaded files.
package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/closestfriend/replicate-predictions-downloader/pkg/domain"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

type ModelLine struct {
	Model string
	Files int
	Bytes int64
}

// Breakdown lists per-model download stats, most files first. Ties are
// ordered by model name.
func Breakdown(stats *domain.DownloadStats) []ModelLine {
	if stats == nil {
		return nil
	}

	lines := make([]ModelLine, 0, len(stats.ByModel))
	for model, s := range stats.ByModel {
		lines = append(lines, ModelLine{Model: model, Files: s.Files, Bytes: s.Bytes})
	}
	slices.SortFunc(lines, func(a, b ModelLine) int {
		if c := cmp.Compare(b.Files, a.Files); c != 0 {
			return c
		}
		return cmp.Compare(a.Model, b.Model)
	})
	return lines
}

func FormatSize(b int64) string {
	if b < 0 {
		b = 0
	}
	return humanize.IBytes(uint64(b))
}

type Console struct {
	w       io.Writer
	noColor bool
}

func NewConsole(w io.Writer, noColor bool) *Console {
	return &Console{w: w, noColor: noColor}
}

func (c *Console) paint(attr color.Attribute, s string) string {
	if c.noColor {
		return s
	}
	return color.New(attr).Sprint(s)
}

func (c *Console) Print(s *domain.Summary) {
	if s.Empty() {
		fmt.Fprintln(c.w, "No predictions found!")
		return
	}

	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, c.paint(color.Bold, "Download Complete!"))
	fmt.Fprintln(c.w, "====================")
	fmt.Fprintf(c.w, "Files organized in: %s/\n", s.BaseDir)
	fmt.Fprintf(c.w, "Metadata saved to:  %s\n", s.MetadataFile)
	fmt.Fprintf(c.w, "Models processed:   %d\n", s.ModelCount)
	fmt.Fprintf(c.w, "Files downloaded:   %s\n", c.paint(color.FgGreen, fmt.Sprint(s.Downloaded)))
	if s.Skipped > 0 {
		fmt.Fprintf(c.w, "Files skipped:      %d\n", s.Skipped)
	}
	errs := fmt.Sprint(s.Errors)
	if s.Errors > 0 {
		errs = c.paint(color.FgRed, errs)
	}
	fmt.Fprintf(c.w, "Errors:             %s\n", errs)

	var total int64
	if s.Stats != nil {
		total = s.Stats.TotalBytes
	}
	fmt.Fprintf(c.w, "Total size:         %s\n", FormatSize(total))

	if lines := Breakdown(s.Stats); len(lines) > 0 {
		fmt.Fprintln(c.w)
		fmt.Fprintln(c.w, c.paint(color.Bold, "Breakdown by Model:"))
		for _, l := range lines {
			fmt.Fprintf(c.w, "  %s: %d files (%s)\n", l.Model, l.Files, FormatSize(l.Bytes))
		}
	}

	if len(s.Archives) > 0 {
		fmt.Fprintln(c.w)
		fmt.Fprintln(c.w, c.paint(color.Bold, "Archives:"))
		for _, a := range s.Archives {
			fmt.Fprintf(c.w, "  %s (%s)\n", a.Path, FormatSize(a.Bytes))
		}
	}

	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, c.paint(color.Bold, "Prediction Stats:"))
	fmt.Fprintf(c.w, "  Successful: %s\n", c.paint(color.FgGreen, fmt.Sprint(s.Succeeded)))
	fmt.Fprintf(c.w, "  Failed:     %s\n", c.paint(color.FgRed, fmt.Sprint(s.Failed)))
	fmt.Fprintf(c.w, "  Canceled:   %s\n", c.paint(color.FgYellow, fmt.Sprint(s.Canceled)))

	if s.StateSaved {
		fmt.Fprintln(c.w)
		fmt.Fprintln(c.w, "State saved for future incremental downloads")
	}
}
