// Package geometry applies perspective and rotation warps and, for checkerboard
// images, simulates a camera calibration.
package geometry

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"cvlab/internal/opencv/conversion"
	"cvlab/internal/opencv/safe"
	"cvlab/internal/report"
	"cvlab/internal/samples"
	"cvlab/internal/stages"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// Output locations relative to the output root.
const (
	Dir     = "04_geometry/output"
	CSVName = "geometry_parameters.csv"
)

const RotationAngle = 30.0

// perspectiveTargets are the destination corners as fractions of width and height,
// in the order top-left, top-right, bottom-left, bottom-right.
var perspectiveTargets = [4][2]float32{
	{0.15, 0.15},
	{0.85, 0.10},
	{0.05, 0.90},
	{0.95, 0.85},
}

type Stage struct {
	opts stages.Options
}

func New(opts stages.Options) *Stage {
	return &Stage{opts: opts}
}

func (s *Stage) Name() string    { return "geometry" }
func (s *Stage) Dir() string     { return Dir }
func (s *Stage) CSVName() string { return CSVName }

func (s *Stage) Schema() report.Schema {
	return report.Schema{
		OperationHeader: "Transform Type",
		Columns: []report.Column{
			report.ColSource, report.ColOperation, report.ColParameters, report.ColShape, report.ColOutput,
		},
	}
}

// IsCalibrationTarget reports whether calibration should be attempted for the named image.
func IsCalibrationTarget(name string) bool {
	return strings.Contains(strings.ToLower(name), "checkerboard")
}

// Result collects every matrix computed for one image; it backs the text dump.
type Result struct {
	Name        string
	Width       int
	Height      int
	Source      [4]gocv.Point2f
	Destination [4]gocv.Point2f
	Perspective *mat.Dense
	Center      image.Point
	Rotation    *mat.Dense
	Calibration *Calibration
}

func (s *Stage) Process(ctx context.Context, img samples.Image, outDir string) ([]report.Record, error) {
	if err := safe.ValidateGray(img.Mat, "geometry"); err != nil {
		return nil, err
	}
	if err := stages.EnsureDir(outDir); err != nil {
		return nil, err
	}

	bgr, err := conversion.ToBGR(img.Mat)
	if err != nil {
		return nil, err
	}
	defer bgr.Close()
	src := bgr.GetMat()

	res := &Result{Name: img.Name, Width: src.Cols(), Height: src.Rows()}
	records := make([]report.Record, 0, 3)

	filename := img.Name + "_perspective_transformed.png"
	if err := s.perspective(src, res, outDir, filename); err != nil {
		return nil, err
	}
	records = append(records, report.Record{
		Source:    img.Name,
		Operation: "Perspective Transform",
		Parameters: fmt.Sprintf("corners -> (%.2fw, %.2fh), (%.2fw, %.2fh), (%.2fw, %.2fh), (%.2fw, %.2fh)",
			perspectiveTargets[0][0], perspectiveTargets[0][1],
			perspectiveTargets[1][0], perspectiveTargets[1][1],
			perspectiveTargets[2][0], perspectiveTargets[2][1],
			perspectiveTargets[3][0], perspectiveTargets[3][1]),
		Shape:  shape(res.Perspective),
		Output: filename,
	})

	if err := stages.Checkpoint(ctx); err != nil {
		return nil, err
	}

	filename = fmt.Sprintf("%s_rotated_%ddeg.png", img.Name, int(RotationAngle))
	if err := s.rotate(src, res, outDir, filename); err != nil {
		return nil, err
	}
	records = append(records, report.Record{
		Source:     img.Name,
		Operation:  fmt.Sprintf("Rotation %d°", int(RotationAngle)),
		Parameters: fmt.Sprintf("angle = %d, center = (%d, %d), scale = 1.0", int(RotationAngle), res.Center.X, res.Center.Y),
		Shape:      shape(res.Rotation),
		Output:     filename,
	})

	if IsCalibrationTarget(img.Name) {
		if err := stages.Checkpoint(ctx); err != nil {
			return nil, err
		}

		rec, err := s.calibrate(img, src, res, outDir)
		switch {
		case errors.Is(err, ErrCornersNotFound), errors.Is(err, ErrPoseNotSolved):
			s.opts.Log().Warning("Geometry", "calibration skipped", map[string]interface{}{
				"image":   img.Name,
				"pattern": fmt.Sprintf("%dx%d", PatternSize.X, PatternSize.Y),
				"reason":  err.Error(),
			})
		case err != nil:
			return nil, err
		default:
			records = append(records, rec)
		}
	}

	if err := WriteParameters(outDir, res); err != nil {
		return nil, err
	}

	s.opts.Log().Info("Geometry", "image processed", map[string]interface{}{
		"image":      img.Name,
		"records":    len(records),
		"calibrated": res.Calibration != nil,
	})
	return records, nil
}

func (s *Stage) perspective(src gocv.Mat, res *Result, outDir, filename string) error {
	w, h := float32(res.Width), float32(res.Height)
	res.Source = [4]gocv.Point2f{{X: 0, Y: 0}, {X: w - 1, Y: 0}, {X: 0, Y: h - 1}, {X: w - 1, Y: h - 1}}
	for i, t := range perspectiveTargets {
		res.Destination[i] = gocv.Point2f{X: w * t[0], Y: h * t[1]}
	}

	srcPts := gocv.NewPoint2fVectorFromPoints(res.Source[:])
	defer srcPts.Close()
	dstPts := gocv.NewPoint2fVectorFromPoints(res.Destination[:])
	defer dstPts.Close()

	m := gocv.GetPerspectiveTransform2f(srcPts, dstPts)
	defer m.Close()
	res.Perspective = toDense(m)

	warped := gocv.NewMat()
	defer warped.Close()
	gocv.WarpPerspective(src, &warped, m, image.Pt(res.Width, res.Height))

	return stages.WriteImage(outDir, filename, warped)
}

func (s *Stage) rotate(src gocv.Mat, res *Result, outDir, filename string) error {
	res.Center = image.Pt(res.Width/2, res.Height/2)

	m := gocv.GetRotationMatrix2D(res.Center, RotationAngle, 1.0)
	defer m.Close()
	res.Rotation = toDense(m)

	rotated := gocv.NewMat()
	defer rotated.Close()
	gocv.WarpAffine(src, &rotated, m, image.Pt(res.Width, res.Height))

	return stages.WriteImage(outDir, filename, rotated)
}

func (s *Stage) calibrate(img samples.Image, src gocv.Mat, res *Result, outDir string) (report.Record, error) {
	canvas := src.Clone()
	defer canvas.Close()

	cal, err := Calibrate(img.Mat.GetMat(), &canvas)
	if err != nil {
		return report.Record{}, err
	}

	filename := img.Name + "_calibration_corners.png"
	if err := stages.WriteImage(outDir, filename, canvas); err != nil {
		return report.Record{}, err
	}
	res.Calibration = &cal

	s.opts.Log().Debug("Geometry", "pose solved", map[string]interface{}{
		"image":   img.Name,
		"rvec":    cal.RVec,
		"tvec":    cal.TVec,
		"corners": len(cal.Corners),
	})

	return report.Record{
		Source:    img.Name,
		Operation: "Camera Calibration",
		Parameters: fmt.Sprintf("pattern = %dx%d, focal = %g, principal point = (%g, %g)",
			PatternSize.X, PatternSize.Y, FocalLength, cal.Camera.At(0, 2), cal.Camera.At(1, 2)),
		Shape:  "Camera Matrix: " + shape(cal.Camera),
		Output: filename,
	}, nil
}

func toDense(m gocv.Mat) *mat.Dense {
	d := mat.NewDense(m.Rows(), m.Cols(), nil)
	for r := 0; r < m.Rows(); r++ {
		for c := 0; c < m.Cols(); c++ {
			d.Set(r, c, m.GetDoubleAt(r, c))
		}
	}
	return d
}

func shape(m mat.Matrix) string {
	r, c := m.Dims()
	return fmt.Sprintf("(%d, %d)", r, c)
}
