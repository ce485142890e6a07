// Package edge runs Sobel and Canny edge detectors at fixed parameter grids.
package edge

import (
	"context"
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
	Dir     = "02_edge/output"
	CSVName = "edge_parameters.csv"
)

type CannyThresholds struct {
	Low, High float32
	Label     string
}

var (
	SobelKernels = []int{3, 5}
	CannyGrid    = []CannyThresholds{
		{50, 150, "low"},
		{100, 200, "medium"},
		{150, 250, "high"},
	}
	// Downsampled is applied after halving both dimensions.
	Downsampled = CannyThresholds{50, 150, "downsampled"}
)

type Stage struct {
	opts stages.Options
}

func New(opts stages.Options) *Stage {
	return &Stage{opts: opts}
}

func (s *Stage) Name() string    { return "edge" }
func (s *Stage) Dir() string     { return Dir }
func (s *Stage) CSVName() string { return CSVName }

func (s *Stage) Schema() report.Schema {
	return report.Schema{
		OperationHeader: "Edge Detection Method",
		Columns:         []report.Column{report.ColSource, report.ColOperation, report.ColParameters, report.ColOutput},
	}
}

func (s *Stage) Process(ctx context.Context, img samples.Image, outDir string) ([]report.Record, error) {
	if err := safe.ValidateGray(img.Mat, "edge detection"); err != nil {
		return nil, err
	}
	if err := stages.EnsureDir(outDir); err != nil {
		return nil, err
	}

	src := img.Mat.GetMat()
	records := make([]report.Record, 0, 6)

	for _, k := range SobelKernels {
		if err := stages.Checkpoint(ctx); err != nil {
			return nil, err
		}

		filename := fmt.Sprintf("%s_sobel_k%d.png", img.Name, k)
		if err := sobelMagnitude(src, k, outDir, filename); err != nil {
			return nil, err
		}
		records = append(records, report.Record{
			Source:     img.Name,
			Operation:  "Sobel",
			Parameters: fmt.Sprintf("ksize = %d", k),
			Output:     filename,
		})
	}

	for _, th := range CannyGrid {
		if err := stages.Checkpoint(ctx); err != nil {
			return nil, err
		}

		filename := fmt.Sprintf("%s_canny_%s_%d_%d.png", img.Name, th.Label, int(th.Low), int(th.High))
		if err := canny(src, th, outDir, filename); err != nil {
			return nil, err
		}
		records = append(records, report.Record{
			Source:     img.Name,
			Operation:  "Canny",
			Parameters: fmt.Sprintf("low_threshold = %d, high_threshold = %d", int(th.Low), int(th.High)),
			Output:     filename,
		})
	}

	if err := stages.Checkpoint(ctx); err != nil {
		return nil, err
	}
	filename := img.Name + "_canny_downsampled.png"
	if err := cannyDownsampled(src, outDir, filename); err != nil {
		return nil, err
	}
	records = append(records, report.Record{
		Source:    img.Name,
		Operation: "Canny Downsampled",
		Parameters: fmt.Sprintf("low_threshold = %d, high_threshold = %d, scale = 0.5",
			int(Downsampled.Low), int(Downsampled.High)),
		Output: filename,
	})

	s.opts.Log().Info("Edge", "image processed", map[string]interface{}{
		"image":   img.Name,
		"records": len(records),
	})
	return records, nil
}

func sobelMagnitude(src gocv.Mat, ksize int, outDir, filename string) error {
	gx := gocv.NewMat()
	defer gx.Close()
	gy := gocv.NewMat()
	defer gy.Close()
	mag := gocv.NewMat()
	defer mag.Close()

	gocv.Sobel(src, &gx, gocv.MatTypeCV64F, 1, 0, ksize, 1, 0, gocv.BorderDefault)
	gocv.Sobel(src, &gy, gocv.MatTypeCV64F, 0, 1, ksize, 1, 0, gocv.BorderDefault)
	gocv.Magnitude(gx, gy, &mag)

	out, err := conversion.NormalizeMinMax(mag)
	if err != nil {
		return fmt.Errorf("sobel k%d: %w", ksize, err)
	}
	defer out.Close()

	return stages.WriteImage(outDir, filename, out.GetMat())
}

func canny(src gocv.Mat, th CannyThresholds, outDir, filename string) error {
	edges := gocv.NewMat()
	defer edges.Close()

	gocv.Canny(src, &edges, th.Low, th.High)
	return stages.WriteImage(outDir, filename, edges)
}

// Downsample halves each dimension (floor) with area interpolation.
func Downsample(src gocv.Mat) gocv.Mat {
	dst := gocv.NewMat()
	size := image.Point{X: max(src.Cols()/2, 1), Y: max(src.Rows()/2, 1)}
	gocv.Resize(src, &dst, size, 0, 0, gocv.InterpolationArea)
	return dst
}

func cannyDownsampled(src gocv.Mat, outDir, filename string) error {
	small := Downsample(src)
	defer small.Close()

	return canny(small, Downsampled, outDir, filename)
}
