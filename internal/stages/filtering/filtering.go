// Package filtering produces blurred and gradient-magnitude variants of an image.
package filtering

import (
	"context"
	"errors"
	"fmt"
	"image"

	"cvlab/internal/opencv/conversion"
	"cvlab/internal/opencv/safe"
	"cvlab/internal/report"
	"cvlab/internal/samples"
	"cvlab/internal/stages"

	"gocv.io/x/gocv"
)

// Output locations relative to the output root.
const (
	Dir     = "01_filtering/output"
	CSVName = "filtering_parameters.csv"
)

var (
	GaussianKernels = []int{3, 5, 7}
	MedianKernels   = []int{3, 5, 7}
)

type Stage struct {
	opts stages.Options
}

func New(opts stages.Options) *Stage {
	return &Stage{opts: opts}
}

func (s *Stage) Name() string    { return "filtering" }
func (s *Stage) Dir() string     { return Dir }
func (s *Stage) CSVName() string { return CSVName }

func (s *Stage) Schema() report.Schema {
	return report.Schema{
		OperationHeader: "Filter Type",
		Columns:         []report.Column{report.ColSource, report.ColOperation, report.ColParameters, report.ColOutput},
	}
}

func (s *Stage) Process(ctx context.Context, img samples.Image, outDir string) ([]report.Record, error) {
	if err := safe.ValidateGray(img.Mat, "filtering"); err != nil {
		return nil, err
	}
	if err := stages.EnsureDir(outDir); err != nil {
		return nil, err
	}

	src := img.Mat.GetMat()

	if s.opts.KeepOriginals {
		if err := stages.WriteImage(outDir, img.Name+"_original.png", src); err != nil {
			return nil, err
		}
	}

	records := make([]report.Record, 0, 9)

	for _, k := range GaussianKernels {
		if err := stages.Checkpoint(ctx); err != nil {
			return nil, err
		}

		filename := fmt.Sprintf("%s_gaussian_%dx%d.png", img.Name, k, k)
		if err := s.gaussian(src, k, outDir, filename); err != nil {
			return nil, err
		}
		records = append(records, report.Record{
			Source:     img.Name,
			Operation:  "Gaussian Blur",
			Parameters: fmt.Sprintf("Kernel Size = (%d, %d), Sigma = 0 (auto)", k, k),
			Output:     filename,
		})
	}

	for _, k := range MedianKernels {
		if err := stages.Checkpoint(ctx); err != nil {
			return nil, err
		}

		filename := fmt.Sprintf("%s_median_%dx%d.png", img.Name, k, k)
		if err := s.median(src, k, outDir, filename); err != nil {
			return nil, err
		}
		records = append(records, report.Record{
			Source:     img.Name,
			Operation:  "Median Blur",
			Parameters: fmt.Sprintf("Kernel Size = %dx%d", k, k),
			Output:     filename,
		})
	}

	if err := stages.Checkpoint(ctx); err != nil {
		return nil, err
	}
	sobel, err := s.sobel(img.Name, src, outDir)
	if err != nil {
		return nil, err
	}
	records = append(records, sobel...)

	s.opts.Log().Info("Filtering", "image processed", map[string]interface{}{
		"image":   img.Name,
		"records": len(records),
	})
	return records, nil
}

func (s *Stage) gaussian(src gocv.Mat, k int, outDir, filename string) error {
	dst := gocv.NewMat()
	defer dst.Close()

	gocv.GaussianBlur(src, &dst, image.Point{X: k, Y: k}, 0, 0, gocv.BorderDefault)
	return stages.WriteImage(outDir, filename, dst)
}

func (s *Stage) median(src gocv.Mat, k int, outDir, filename string) error {
	dst := gocv.NewMat()
	defer dst.Close()

	gocv.MedianBlur(src, &dst, k)
	return stages.WriteImage(outDir, filename, dst)
}

// sobel writes the X, Y and magnitude gradients, each scaled by its own maximum absolute value.
func (s *Stage) sobel(name string, src gocv.Mat, outDir string) ([]report.Record, error) {
	gx := gocv.NewMat()
	defer gx.Close()
	gy := gocv.NewMat()
	defer gy.Close()
	mag := gocv.NewMat()
	defer mag.Close()

	gocv.Sobel(src, &gx, gocv.MatTypeCV64F, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(src, &gy, gocv.MatTypeCV64F, 0, 1, 3, 1, 0, gocv.BorderDefault)
	gocv.Magnitude(gx, gy, &mag)

	variants := []struct {
		grad      gocv.Mat
		suffix    string
		operation string
		params    string
	}{
		{gx, "sobel_x", "Sobel X", "ksize = 3, dx = 1, dy = 0"},
		{gy, "sobel_y", "Sobel Y", "ksize = 3, dx = 0, dy = 1"},
		{mag, "sobel_magnitude", "Sobel Magnitude", "Magnitude of X and Y gradients"},
	}

	records := make([]report.Record, 0, len(variants))
	for _, v := range variants {
		filename := fmt.Sprintf("%s_%s.png", name, v.suffix)

		normalized, err := conversion.NormalizeMaxAbs(v.grad)
		if errors.Is(err, conversion.ErrFlatGradient) {
			s.opts.Log().Warning("Filtering", "flat gradient, writing zero image", map[string]interface{}{
				"image":   name,
				"variant": v.operation,
			})
		} else if err != nil {
			return nil, fmt.Errorf("%s: %w", v.operation, err)
		}

		err = stages.WriteImage(outDir, filename, normalized.GetMat())
		normalized.Close()
		if err != nil {
			return nil, err
		}

		records = append(records, report.Record{
			Source:     name,
			Operation:  v.operation,
			Parameters: v.params,
			Output:     filename,
		})
	}
	return records, nil
}
