package features

import (
	"image"

	"gocv.io/x/gocv"
)

type HarrisParams struct {
	BlockSize int
	KSize     int
	K         float32
	Label     string
}

// HarrisThresholdRatio is the fraction of the maximum response a pixel must exceed to count as a corner.
const HarrisThresholdRatio = 0.01

var HarrisGrid = []HarrisParams{
	{2, 3, 0.04, "default"},
	{3, 3, 0.04, "larger_block"},
	{2, 5, 0.04, "larger_kernel"},
	{2, 3, 0.06, "higher_k"},
}

// HarrisResponse computes R = det(M) - k*trace(M)^2 of the windowed structure tensor M
// as a CV_32F image the size of gray.
func HarrisResponse(gray gocv.Mat, p HarrisParams) gocv.Mat {
	scale := 1.0 / float64(int(1)<<(p.KSize-1)*p.BlockSize) / 255.0

	dx := gocv.NewMat()
	defer dx.Close()
	dy := gocv.NewMat()
	defer dy.Close()
	gocv.Sobel(gray, &dx, gocv.MatTypeCV32F, 1, 0, p.KSize, scale, 0, gocv.BorderDefault)
	gocv.Sobel(gray, &dy, gocv.MatTypeCV32F, 0, 1, p.KSize, scale, 0, gocv.BorderDefault)

	window := image.Pt(p.BlockSize, p.BlockSize)
	sxx := windowedProduct(dx, dx, window)
	defer sxx.Close()
	syy := windowedProduct(dy, dy, window)
	defer syy.Close()
	sxy := windowedProduct(dx, dy, window)
	defer sxy.Close()

	det := gocv.NewMat()
	defer det.Close()
	cross := gocv.NewMat()
	defer cross.Close()
	gocv.Multiply(sxx, syy, &det)
	gocv.Multiply(sxy, sxy, &cross)
	gocv.Subtract(det, cross, &det)

	trace := gocv.NewMat()
	defer trace.Close()
	gocv.Add(sxx, syy, &trace)
	gocv.Multiply(trace, trace, &trace)
	trace.MultiplyFloat(p.K)

	response := gocv.NewMat()
	gocv.Subtract(det, trace, &response)
	return response
}

func windowedProduct(a, b gocv.Mat, window image.Point) gocv.Mat {
	prod := gocv.NewMat()
	defer prod.Close()
	gocv.Multiply(a, b, &prod)

	out := gocv.NewMat()
	gocv.BoxFilter(prod, &out, -1, window)
	return out
}

// HarrisCorners thresholds response at HarrisThresholdRatio of its maximum and
// returns the 8-bit corner mask with the number of corner pixels. A response
// with no positive value has no corners.
func HarrisCorners(response gocv.Mat) (gocv.Mat, int) {
	_, maxVal, _, _ := gocv.MinMaxLoc(response)
	if maxVal <= 0 {
		return gocv.Zeros(response.Rows(), response.Cols(), gocv.MatTypeCV8UC1), 0
	}

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(response, &binary, HarrisThresholdRatio*maxVal, 255, gocv.ThresholdBinary)

	mask := gocv.NewMat()
	binary.ConvertTo(&mask, gocv.MatTypeCV8U)
	return mask, gocv.CountNonZero(mask)
}
