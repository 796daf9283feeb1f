package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rcliao/timealign/pkg/interp"
	"github.com/rcliao/timealign/pkg/recmeta"
)

// Scan walks dir for recording roots (directories containing meta.yml)
// and indexes each one. Broken recordings are logged and skipped; the
// scan only fails on database errors. Returns the number indexed.
func (c *Catalog) Scan(ctx context.Context, dir string) (int, error) {
	indexed := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if _, err := os.Stat(filepath.Join(path, recmeta.FileName)); err != nil {
			return nil
		}

		e, err := entryFromRoot(path)
		if err != nil {
			slog.Warn("skipping recording", "root", path, "error", err)
			return fs.SkipDir
		}
		if _, err := c.Put(ctx, *e); err != nil {
			return err
		}
		indexed++
		slog.Info("indexed recording", "root", path, "modality", e.Modality)
		return fs.SkipDir
	})
	if err != nil {
		return indexed, fmt.Errorf("scan %s: %w", dir, err)
	}
	return indexed, nil
}

// Index indexes a single recording root.
func (c *Catalog) Index(ctx context.Context, root string) (*Entry, error) {
	e, err := entryFromRoot(root)
	if err != nil {
		return nil, err
	}
	return c.Put(ctx, *e)
}

func entryFromRoot(root string) (*Entry, error) {
	rec, err := recmeta.Load(root)
	if err != nil {
		return nil, err
	}

	e := &Entry{
		Root:      root,
		Modality:  rec.Modality,
		StartTime: rec.StartTime,
		EndTime:   rec.EndTime,
	}
	switch rec.Modality {
	case interp.ModalitySequence:
		e.SamplingRate = rec.SamplingRate
		e.Channels = rec.NumSignals
		e.Frames = rec.NumTimestamps
	case interp.ModalityScreen:
		chunks, err := interp.ReadChunks(root)
		if err != nil {
			return nil, err
		}
		for _, ch := range chunks {
			e.Frames += ch.NumFrames
		}
	}
	return e, nil
}
