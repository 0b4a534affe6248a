package janitor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/socialchef/recipebot/internal/services/media"
	"github.com/socialchef/recipebot/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Janitor removes downloaded media from the work directory.
type Janitor struct {
	dir string
	now func() time.Time
}

func New(dir string) *Janitor {
	return &Janitor{dir: dir, now: time.Now}
}

// Cleanup deletes every path that exists, together with the partial and
// intermediate files yt-dlp leaves next to an asset. Missing files are not an error.
func (j *Janitor) Cleanup(ctx context.Context, paths ...string) error {
	var errs []error
	for _, p := range paths {
		if p == "" {
			continue
		}
		for _, f := range withSiblings(p) {
			if err := remove(ctx, f); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func remove(ctx context.Context, p string) error {
	err := os.Remove(p)
	switch {
	case err == nil:
		slog.DebugContext(ctx, "Removed asset", "path", p)
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		slog.WarnContext(ctx, "Failed to remove asset", "path", p, "error", err)
	}
	return err
}

// withSiblings returns p and, when p names an asset, every file that shares its stem.
func withSiblings(p string) []string {
	files := []string{p}
	base := filepath.Base(p)
	if !media.IsAssetName(base) {
		return files
	}

	stem := strings.TrimSuffix(base, filepath.Ext(base)) + "."
	dir := filepath.Dir(p)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return files
	}
	for _, e := range entries {
		if e.Name() != base && !e.IsDir() && strings.HasPrefix(e.Name(), stem) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files
}

// Sweep removes asset files older than maxAge that a crashed run left behind.
// It returns the number of files removed.
func (j *Janitor) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	ctx, span := telemetry.Tracer("janitor").Start(ctx, "janitor.sweep")
	defer span.End()

	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return 0, fmt.Errorf("read work dir: %w", err)
	}

	cutoff := j.now().Add(-maxAge)
	removed := 0
	var errs []error
	for _, entry := range entries {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if entry.IsDir() || !media.IsAssetName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := remove(ctx, filepath.Join(j.dir, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	span.SetAttributes(attribute.Int("janitor.removed", removed))
	if removed > 0 {
		slog.InfoContext(ctx, "Swept stale assets", "dir", j.dir, "removed", removed)
	}
	return removed, errors.Join(errs...)
}
