package conversion

import (
	"fmt"
	"image"
	"image/draw"

	"cvlab/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ToGray converts 1, 3 (BGR) or 4 (BGRA) channel images to 8-bit grayscale.
// Single-channel input is cloned.
func ToGray(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "grayscale conversion"); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	srcMat := src.GetMat()
	dstMat := gocv.NewMat()

	switch src.Channels() {
	case 1:
		srcMat.ConvertTo(&dstMat, gocv.MatTypeCV8U)
	case 3:
		gocv.CvtColor(srcMat, &dstMat, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(srcMat, &dstMat, gocv.ColorBGRAToGray)
	default:
		dstMat.Close()
		return nil, fmt.Errorf("unsupported channel count: %d", src.Channels())
	}

	return safe.Adopt(dstMat, "gray")
}

// ToBGR returns a 3-channel copy of a grayscale image for drawing colored overlays.
func ToBGR(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "BGR conversion"); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if src.Channels() == 3 {
		return src.Clone()
	}
	if src.Channels() != 1 {
		return nil, fmt.Errorf("unsupported channel count: %d", src.Channels())
	}

	dstMat := gocv.NewMat()
	gocv.CvtColor(src.GetMat(), &dstMat, gocv.ColorGrayToBGR)
	return safe.Adopt(dstMat, "bgr")
}

// ImageToGrayMat converts any Go image to an 8-bit single-channel Mat.
func ImageToGrayMat(img image.Image) (*safe.Mat, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if err := safe.ValidateDimensions(width, height, "ImageToGrayMat"); err != nil {
		return nil, err
	}

	gray, ok := img.(*image.Gray)
	if !ok || gray.Stride != width || bounds.Min != (image.Point{}) {
		gray = image.NewGray(image.Rect(0, 0, width, height))
		draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	}

	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC1, gray.Pix)
	if err != nil {
		return nil, fmt.Errorf("Mat creation failed: %w", err)
	}
	// NewMatFromBytes shares the Go buffer; clone so the Mat owns its pixels.
	defer mat.Close()

	return safe.NewMatFromMat(mat)
}

// GrayMatToImage copies an 8-bit single-channel Mat into an *image.Gray.
func GrayMatToImage(src *safe.Mat) (*image.Gray, error) {
	if err := safe.ValidateGray(src, "Mat to image conversion"); err != nil {
		return nil, err
	}

	rows, cols := src.Rows(), src.Cols()
	m := src.GetMat()
	if !m.IsContinuous() {
		return nil, fmt.Errorf("Mat %d is not continuous", src.ID())
	}

	img := image.NewGray(image.Rect(0, 0, cols, rows))
	copy(img.Pix, m.ToBytes())
	return img, nil
}
