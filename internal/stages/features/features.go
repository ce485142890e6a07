// Package features detects Harris, SIFT and FAST keypoints and draws them on color copies.
package features

import (
	"context"
	"fmt"
	"image/color"

	"cvlab/internal/opencv/conversion"
	"cvlab/internal/opencv/safe"
	"cvlab/internal/report"
	"cvlab/internal/samples"
	"cvlab/internal/stages"

	"gocv.io/x/gocv"
)

// Output locations relative to the output root.
const (
	Dir     = "03_featurepoints/output"
	CSVName = "feature_statistics.csv"
)

var (
	FASTThresholds = []int{10, 20, 30}

	cornerColor   = gocv.NewScalar(0, 0, 255, 0)
	keypointColor = color.RGBA{0, 255, 0, 0}
)

type Stage struct {
	opts stages.Options
}

func New(opts stages.Options) *Stage {
	return &Stage{opts: opts}
}

func (s *Stage) Name() string    { return "features" }
func (s *Stage) Dir() string     { return Dir }
func (s *Stage) CSVName() string { return CSVName }

func (s *Stage) Schema() report.Schema {
	return report.Schema{
		OperationHeader: "Feature Detector",
		Columns: []report.Column{
			report.ColSource, report.ColOperation, report.ColPoints, report.ColParameters, report.ColOutput,
		},
	}
}

func (s *Stage) Process(ctx context.Context, img samples.Image, outDir string) ([]report.Record, error) {
	if err := safe.ValidateGray(img.Mat, "feature detection"); err != nil {
		return nil, err
	}
	if err := stages.EnsureDir(outDir); err != nil {
		return nil, err
	}

	canvas, err := conversion.ToBGR(img.Mat)
	if err != nil {
		return nil, err
	}
	defer canvas.Close()

	gray := img.Mat.GetMat()
	records := make([]report.Record, 0, 8)

	for _, p := range HarrisGrid {
		if err := stages.Checkpoint(ctx); err != nil {
			return nil, err
		}

		filename := fmt.Sprintf("%s_harris_%s.png", img.Name, p.Label)
		count, err := harris(gray, canvas.GetMat(), p, outDir, filename)
		if err != nil {
			return nil, err
		}
		records = append(records, report.Record{
			Source:     img.Name,
			Operation:  "Harris " + p.Label,
			Points:     count,
			Parameters: fmt.Sprintf("blockSize=%d, ksize=%d, k=%g", p.BlockSize, p.KSize, p.K),
			Output:     filename,
		})
	}

	if err := stages.Checkpoint(ctx); err != nil {
		return nil, err
	}
	filename := img.Name + "_sift_features.png"
	count, err := siftKeypoints(gray, canvas.GetMat(), outDir, filename)
	if err != nil {
		return nil, err
	}
	records = append(records, report.Record{
		Source:     img.Name,
		Operation:  "SIFT",
		Points:     count,
		Parameters: "default SIFT parameters",
		Output:     filename,
	})

	for _, threshold := range FASTThresholds {
		if err := stages.Checkpoint(ctx); err != nil {
			return nil, err
		}

		filename := fmt.Sprintf("%s_fast_thresh_%d.png", img.Name, threshold)
		count, err := fastKeypoints(gray, canvas.GetMat(), threshold, outDir, filename)
		if err != nil {
			return nil, err
		}
		records = append(records, report.Record{
			Source:     img.Name,
			Operation:  fmt.Sprintf("FAST thresh_%d", threshold),
			Points:     count,
			Parameters: fmt.Sprintf("threshold = %d", threshold),
			Output:     filename,
		})
	}

	s.opts.Log().Info("Features", "image processed", map[string]interface{}{
		"image":   img.Name,
		"records": len(records),
	})
	return records, nil
}

func harris(gray, canvas gocv.Mat, p HarrisParams, outDir, filename string) (int, error) {
	response := HarrisResponse(gray, p)
	defer response.Close()

	mask, count := HarrisCorners(response)
	defer mask.Close()

	overlay := canvas.Clone()
	defer overlay.Close()

	if count > 0 {
		red := gocv.NewMatWithSizeFromScalar(cornerColor, canvas.Rows(), canvas.Cols(), gocv.MatTypeCV8UC3)
		defer red.Close()
		red.CopyToWithMask(&overlay, mask)
	}

	if err := stages.WriteImage(outDir, filename, overlay); err != nil {
		return 0, err
	}
	return count, nil
}

func drawKeypoints(canvas gocv.Mat, kps []gocv.KeyPoint, outDir, filename string) error {
	out := gocv.NewMat()
	defer out.Close()

	gocv.DrawKeyPoints(canvas, kps, &out, keypointColor, gocv.DrawRichKeyPoints)
	return stages.WriteImage(outDir, filename, out)
}

func siftKeypoints(gray, canvas gocv.Mat, outDir, filename string) (int, error) {
	sift := gocv.NewSIFT()
	defer sift.Close()

	kps := sift.Detect(gray)
	if err := drawKeypoints(canvas, kps, outDir, filename); err != nil {
		return 0, err
	}
	return len(kps), nil
}

func fastKeypoints(gray, canvas gocv.Mat, threshold int, outDir, filename string) (int, error) {
	fast := gocv.NewFastFeatureDetectorWithParams(threshold, true, gocv.FastFeatureDetectorType916)
	defer fast.Close()

	kps := fast.Detect(gray)
	if err := drawKeypoints(canvas, kps, outDir, filename); err != nil {
		return 0, err
	}
	return len(kps), nil
}
