package samples

import (
	"fmt"
	"image"
	"image/color"

	"cvlab/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// Board describes a checkerboard by its internal-corner grid.
type Board struct {
	CornersX int
	CornersY int
	Square   int
	Margin   int
}

// StandardBoard is the pattern used for the "checkerboard" sample: 8x8 squares,
// 7x7 internal corners, surrounded by a white quiet zone so corner detection succeeds.
var StandardBoard = Board{CornersX: 7, CornersY: 7, Square: 25, Margin: 25}

// CalibrationBoard matches the printable calibration target: 8x6 internal corners, 50 px squares.
var CalibrationBoard = Board{CornersX: 8, CornersY: 6, Square: 50}

func (b Board) Size() image.Point {
	return image.Pt((b.CornersX+1)*b.Square+2*b.Margin, (b.CornersY+1)*b.Square+2*b.Margin)
}

func (b Board) Validate() error {
	if b.CornersX < 2 || b.CornersY < 2 {
		return fmt.Errorf("board needs at least 2x2 internal corners, got %dx%d", b.CornersX, b.CornersY)
	}
	if b.Square < 2 {
		return fmt.Errorf("square size must be at least 2 px, got %d", b.Square)
	}
	if b.Margin < 0 {
		return fmt.Errorf("margin must not be negative, got %d", b.Margin)
	}
	return nil
}

// Render draws the board as an 8-bit grayscale image. Square (i, j) is white when i+j is even.
func (b Board) Render() (*safe.Mat, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	size := b.Size()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), size.Y, size.X, gocv.MatTypeCV8UC1)

	// Filled rectangles include both corners, hence the -1 on the far edge.
	inner := image.Rect(b.Margin, b.Margin, size.X-b.Margin-1, size.Y-b.Margin-1)
	gocv.Rectangle(&m, inner, color.RGBA{0, 0, 0, 0}, -1)

	white := color.RGBA{255, 255, 255, 0}

	for i := 0; i <= b.CornersY; i++ {
		for j := 0; j <= b.CornersX; j++ {
			if (i+j)%2 != 0 {
				continue
			}
			x0 := b.Margin + j*b.Square
			y0 := b.Margin + i*b.Square
			gocv.Rectangle(&m, image.Rect(x0, y0, x0+b.Square-1, y0+b.Square-1), white, -1)
		}
	}

	return safe.Adopt(m, "checkerboard")
}
