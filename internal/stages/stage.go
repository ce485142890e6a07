// Package stages defines the contract shared by the four transform stages.
package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cvlab/internal/logger"
	"cvlab/internal/report"
	"cvlab/internal/samples"

	"gocv.io/x/gocv"
)

// Stage applies a fixed menu of library operations to one image at a time.
type Stage interface {
	Name() string
	// Dir is the output directory relative to the output root.
	Dir() string
	CSVName() string
	Schema() report.Schema
	// Process writes one artifact per variant into outDir and returns one record per variant.
	Process(ctx context.Context, img samples.Image, outDir string) ([]report.Record, error)
}

// Finisher is implemented by stages that write extra reports once all images are processed.
type Finisher interface {
	Finish(table *report.Table, outDir string) error
}

type Options struct {
	KeepOriginals bool
	Logger        logger.Logger
}

func (o Options) Log() logger.Logger {
	return logger.OrNop(o.Logger)
}

// EnsureDir creates outDir if needed.
func EnsureDir(outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", outDir, err)
	}
	return nil
}

// WriteImage encodes m as outDir/filename, overwriting any previous file.
func WriteImage(outDir, filename string, m gocv.Mat) error {
	if m.Empty() {
		return fmt.Errorf("refusing to write empty image %s", filename)
	}

	path := filepath.Join(outDir, filename)
	if ok := gocv.IMWrite(path, m); !ok {
		return fmt.Errorf("failed to write %s", path)
	}
	return nil
}

// Checkpoint returns the context error, if any.
func Checkpoint(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
