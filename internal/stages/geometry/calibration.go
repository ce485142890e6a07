package geometry

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrCornersNotFound is returned when the internal-corner grid cannot be located.
	ErrCornersNotFound = errors.New("checkerboard corners not found")
	// ErrPoseNotSolved is returned when SolvePnP reports failure.
	ErrPoseNotSolved = errors.New("pose estimation failed")
)

const FocalLength = 800.0

// PatternSize is the internal-corner grid searched for on calibration targets.
var PatternSize = image.Pt(7, 7)

// Calibration holds the simulated intrinsics and the pose of the target.
type Calibration struct {
	Corners    []gocv.Point2f
	Camera     *mat.Dense
	Distortion *mat.Dense
	// RVec is the Rodrigues rotation vector.
	RVec [3]float64
	TVec [3]float64
}

// Calibrate finds and refines the corner grid in gray, draws it on canvas and
// solves the pose of the unit-square target under a fixed pinhole camera with
// zero distortion.
func Calibrate(gray gocv.Mat, canvas *gocv.Mat) (Calibration, error) {
	corners := gocv.NewMat()
	defer corners.Close()

	found := gocv.FindChessboardCorners(gray, PatternSize, &corners,
		gocv.CalibCBAdaptiveThresh|gocv.CalibCBNormalizeImage)
	if !found || corners.Empty() {
		return Calibration{}, ErrCornersNotFound
	}

	criteria := gocv.NewTermCriteria(gocv.MaxIter|gocv.EPS, 30, 0.001)
	if err := gocv.CornerSubPix(gray, &corners, image.Pt(11, 11), image.Pt(-1, -1), criteria); err != nil {
		return Calibration{}, fmt.Errorf("refine corners: %w", err)
	}
	if err := gocv.DrawChessboardCorners(canvas, PatternSize, corners, true); err != nil {
		return Calibration{}, fmt.Errorf("draw corners: %w", err)
	}

	imagePoints := gocv.NewPoint2fVectorFromMat(corners)
	defer imagePoints.Close()
	if n := imagePoints.Size(); n != PatternSize.X*PatternSize.Y {
		return Calibration{}, fmt.Errorf("%w: got %d corners", ErrCornersNotFound, n)
	}

	objectPoints := gocv.NewPoint3fVectorFromPoints(ObjectPoints(PatternSize))
	defer objectPoints.Close()

	camera := CameraMatrix(FocalLength, float64(gray.Cols())/2, float64(gray.Rows())/2)
	defer camera.Close()
	dist := gocv.Zeros(4, 1, gocv.MatTypeCV64F)
	defer dist.Close()

	rvec := gocv.NewMat()
	defer rvec.Close()
	tvec := gocv.NewMat()
	defer tvec.Close()

	if ok := gocv.SolvePnP(objectPoints, imagePoints, camera, dist, &rvec, &tvec, false, 0); !ok {
		return Calibration{}, ErrPoseNotSolved
	}

	return Calibration{
		Corners:    imagePoints.ToPoints(),
		Camera:     toDense(camera),
		Distortion: toDense(dist),
		RVec:       vec3(rvec),
		TVec:       vec3(tvec),
	}, nil
}

// CameraMatrix returns the CV_64F pinhole intrinsics [[f,0,cx],[0,f,cy],[0,0,1]].
func CameraMatrix(focal, cx, cy float64) gocv.Mat {
	k := gocv.Zeros(3, 3, gocv.MatTypeCV64F)
	k.SetDoubleAt(0, 0, focal)
	k.SetDoubleAt(0, 2, cx)
	k.SetDoubleAt(1, 1, focal)
	k.SetDoubleAt(1, 2, cy)
	k.SetDoubleAt(2, 2, 1)
	return k
}

// ObjectPoints lays out the target corners on a unit grid in the z = 0 plane,
// x varying fastest, matching the row-major order of detected corners.
func ObjectPoints(pattern image.Point) []gocv.Point3f {
	pts := make([]gocv.Point3f, 0, pattern.X*pattern.Y)
	for y := 0; y < pattern.Y; y++ {
		for x := 0; x < pattern.X; x++ {
			pts = append(pts, gocv.Point3f{X: float32(x), Y: float32(y)})
		}
	}
	return pts
}

func vec3(m gocv.Mat) [3]float64 {
	var v [3]float64
	for i := range v {
		v[i] = m.GetDoubleAt(i, 0)
	}
	return v
}
