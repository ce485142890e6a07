package conversion

import (
	"errors"
	"fmt"

	"cvlab/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ErrFlatGradient is returned when a gradient image has no non-zero value,
// so dividing by its maximum is undefined.
var ErrFlatGradient = errors.New("gradient image is flat")

// NormalizeMaxAbs maps |src| to 8 bit as 255*|v|/max|v|.
// On a flat input it returns an all-zero image together with ErrFlatGradient.
func NormalizeMaxAbs(src gocv.Mat) (*safe.Mat, error) {
	if src.Empty() {
		return nil, fmt.Errorf("normalize: source Mat is empty")
	}

	minVal, maxVal, _, _ := gocv.MinMaxLoc(src)
	maxAbs := float64(maxVal)
	if -float64(minVal) > maxAbs {
		maxAbs = -float64(minVal)
	}

	if maxAbs == 0 {
		zero, err := safe.Zeros(src.Rows(), src.Cols(), gocv.MatTypeCV8UC1)
		if err != nil {
			return nil, err
		}
		return zero, ErrFlatGradient
	}

	dst := gocv.NewMat()
	gocv.ConvertScaleAbs(src, &dst, 255.0/maxAbs, 0)
	return safe.Adopt(dst, "maxabs")
}

// NormalizeMinMax stretches src linearly onto [0, 255] and converts to 8 bit.
// A constant input yields an all-zero image.
func NormalizeMinMax(src gocv.Mat) (*safe.Mat, error) {
	if src.Empty() {
		return nil, fmt.Errorf("normalize: source Mat is empty")
	}

	minVal, maxVal, _, _ := gocv.MinMaxLoc(src)
	if maxVal == minVal {
		return safe.Zeros(src.Rows(), src.Cols(), gocv.MatTypeCV8UC1)
	}

	stretched := gocv.NewMat()
	defer stretched.Close()
	gocv.Normalize(src, &stretched, 0, 255, gocv.NormMinMax)

	dst := gocv.NewMat()
	stretched.ConvertTo(&dst, gocv.MatTypeCV8U)
	return safe.Adopt(dst, "minmax")
}
