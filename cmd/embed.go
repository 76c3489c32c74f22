package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/photo-triage/internal/embedder"
)

// embeddedFile is an image path and its vector.
type embeddedFile struct {
	Path   string
	Vector []float32
}

// embedFiles embeds files with up to concurrency workers. Results keep the
// order of files. Unreadable images and images without embeddable content
// are skipped and counted; any other embedder error aborts the run.
func embedFiles(ctx context.Context, emb embedder.Embedder, files []string, concurrency int, desc string, logger *slog.Logger) ([]embeddedFile, int, error) {
	vectors := make([][]float32, len(files))
	bar := newProgressBar(len(files), desc)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, concurrency))

	for i, path := range files {
		g.Go(func() error {
			if bar != nil {
				defer bar.Add(1)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				logger.Warn("skipping unreadable image", slog.String("file", path), slog.Any("error", err))
				return nil
			}

			vec, err := emb.Embed(ctx, data)
			if errors.Is(err, embedder.ErrNoContent) {
				logger.Debug("no embeddable content", slog.String("file", path), slog.Any("error", err))
				return nil
			}
			if err != nil {
				return fmt.Errorf("embedding %s: %w", path, err)
			}
			vectors[i] = vec
			return nil
		})
	}

	err := g.Wait()
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return nil, 0, err
	}

	out := make([]embeddedFile, 0, len(files))
	for i, vec := range vectors {
		if vec != nil {
			out = append(out, embeddedFile{Path: files[i], Vector: vec})
		}
	}
	return out, len(files) - len(out), nil
}

// newProgressBar returns nil when stdout is not a terminal.
func newProgressBar(count int, desc string) *progressbar.ProgressBar {
	if count == 0 || !stdoutIsTerminal() {
		return nil
	}
	return progressbar.NewOptions(count,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
