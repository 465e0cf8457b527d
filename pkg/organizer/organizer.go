// Package organizer downloads prediction outputs into per-model directories.
package organizer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/closestfriend/replicate-predictions-downloader/pkg/archive"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/domain"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/fetcher"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/logger"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/naming"
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

const (
	modelsDirName = "by-model"
	partialSuffix = ".part"
)

type downloader interface {
	Download(ctx context.Context, fileURL string, dst io.Writer) (int64, error)
}

type Config struct {
	BaseDir       string
	DownloadDelay time.Duration
	CreateZips    bool
	SkipExisting  bool
}

type Result struct {
	BaseDir    string
	Downloaded int
	Skipped    int
	Errors     int
	ModelCount int
	Archives   []domain.Archive
	Stats      *domain.DownloadStats

	// Err aggregates every contained download and archive failure.
	Err error
}

type Organizer struct {
	dl      downloader
	namer   *naming.Namer
	cfg     Config
	limiter *rate.Limiter
}

func New(dl downloader, namer *naming.Namer, cfg Config) *Organizer {
	return &Organizer{
		dl:      dl,
		namer:   namer,
		cfg:     cfg,
		limiter: fetcher.NewLimiter(cfg.DownloadDelay),
	}
}

// ModelDir is where files of the given model are stored.
func (o *Organizer) ModelDir(model string) string {
	return filepath.Join(o.cfg.BaseDir, modelsDirName, model)
}

// Run downloads the outputs of every succeeded prediction, one file at a
// time. A failed file is counted and skipped; it never stops the run.
func (o *Organizer) Run(ctx context.Context, predictions []domain.Prediction) (*Result, error) {
	if err := os.MkdirAll(o.cfg.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	res := &Result{BaseDir: o.cfg.BaseDir, Stats: domain.NewDownloadStats()}
	var errs *multierror.Error

	succeeded := lo.Filter(predictions, func(p domain.Prediction, _ int) bool {
		return p.Status == domain.PredictionStatusSucceeded && p.Output.Present()
	})
	slog.InfoContext(ctx, "processing successful predictions", "count", len(succeeded), "dir", o.cfg.BaseDir)

	var modelDirs []string
	populated := map[string]bool{}

	for i, p := range succeeded {
		if err := o.limiter.Wait(ctx); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("waiting to process %s: %w", p.ID, err))
			break
		}

		model := naming.ModelName(p)
		dir := o.ModelDir(model)
		if !lo.Contains(modelDirs, dir) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				slog.ErrorContext(ctx, "creating model directory", "dir", dir, logger.Err(err))
				errs = multierror.Append(errs, fmt.Errorf("creating %s: %w", dir, err))
				res.Errors++
				continue
			}
			modelDirs = append(modelDirs, dir)
		}

		slog.InfoContext(ctx, "processing prediction",
			"n", fmt.Sprintf("%d/%d", i+1, len(succeeded)), "model", model, "id", shortID(p.ID))

		for j, fileURL := range p.Output.URLs() {
			if !domain.IsHTTPURL(fileURL) {
				continue
			}

			name := o.namer.FileName(p, j, naming.Extension(fileURL))
			path := filepath.Join(dir, name)

			if o.cfg.SkipExisting && fileExists(path) {
				slog.DebugContext(ctx, "file exists, skipping", "file", name)
				res.Skipped++
				populated[dir] = true
				continue
			}

			size, err := o.downloadFile(ctx, fileURL, path)
			if err != nil {
				slog.ErrorContext(ctx, "failed to download", "file", name, logger.Err(err))
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", name, err))
				res.Errors++
				continue
			}

			res.Downloaded++
			res.Stats.Add(model, size)
			populated[dir] = true
			slog.InfoContext(ctx, "downloaded", "file", name, "bytes", size)
		}
	}

	res.ModelCount = len(modelDirs)

	if o.cfg.CreateZips {
		for _, dir := range modelDirs {
			if !populated[dir] {
				continue
			}
			zipPath, size, err := archive.ZipDir(dir)
			if err != nil {
				slog.ErrorContext(ctx, "failed to create archive", "dir", dir, logger.Err(err))
				errs = multierror.Append(errs, fmt.Errorf("archiving %s: %w", dir, err))
				continue
			}
			res.Archives = append(res.Archives, domain.Archive{Model: filepath.Base(dir), Path: zipPath, Bytes: size})
			slog.InfoContext(ctx, "created archive", "path", zipPath, "bytes", size)
		}
	}

	res.Err = errs.ErrorOrNil()
	return res, nil
}

// downloadFile streams the artifact into a sibling ".part" file and renames
// it into place, so path only ever holds a complete download.
func (o *Organizer) downloadFile(ctx context.Context, fileURL, path string) (size int64, err error) {
	tmp := path + partialSuffix
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("creating file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	size, err = o.dl.Download(ctx, fileURL, f)
	if cerr := f.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("closing file: %w", cerr)
	}
	if err != nil {
		return 0, err
	}

	if err = os.Rename(tmp, path); err != nil {
		return 0, fmt.Errorf("renaming file: %w", err)
	}
	return size, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
