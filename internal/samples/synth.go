package samples

import (
	"image"
	"image/color"

	"cvlab/internal/opencv/conversion"
	"cvlab/internal/opencv/safe"

	"gocv.io/x/gocv"
)

func gray(v uint8) color.RGBA {
	return color.RGBA{v, v, v, 0}
}

// verticalGradient fills m row by row from top to bottom intensity.
func verticalGradient(m *gocv.Mat, top, bottom uint8) {
	rows, cols := m.Rows(), m.Cols()
	for y := 0; y < rows; y++ {
		v := int(top) + (int(bottom)-int(top))*y/max(rows-1, 1)
		gocv.Line(m, image.Pt(0, y), image.Pt(cols-1, y), gray(uint8(v)), 1)
	}
}

// Cameraman draws a 512x512 photographer-on-a-field scene.
func Cameraman() (*safe.Mat, error) {
	const size = 512
	m := gocv.NewMatWithSize(size, size, gocv.MatTypeCV8UC1)

	verticalGradient(&m, 200, 150)
	grass := image.Rect(0, 380, size, size)
	gocv.Rectangle(&m, grass, gray(95), -1)
	for x := 0; x < size; x += 16 {
		gocv.Line(&m, image.Pt(x, 380), image.Pt(x+8, size-1), gray(120), 1)
	}

	// Distant buildings on the horizon.
	gocv.Rectangle(&m, image.Rect(340, 300, 380, 380), gray(170), -1)
	gocv.Rectangle(&m, image.Rect(390, 270, 420, 380), gray(180), -1)
	gocv.Rectangle(&m, image.Rect(430, 320, 490, 380), gray(165), -1)

	// Coat.
	coat := gocv.NewPointsVectorFromPoints([][]image.Point{{
		{170, 180}, {270, 180}, {300, 420}, {140, 420},
	}})
	defer coat.Close()
	gocv.FillPoly(&m, coat, gray(25))

	// Head and hair.
	gocv.Circle(&m, image.Pt(220, 140), 38, gray(60), -1)
	gocv.Ellipse(&m, image.Pt(220, 118), image.Pt(40, 22), 0, 180, 360, gray(15), -1)

	// Tripod.
	gocv.Line(&m, image.Pt(300, 220), image.Pt(260, 470), gray(35), 4)
	gocv.Line(&m, image.Pt(300, 220), image.Pt(330, 470), gray(35), 4)
	gocv.Line(&m, image.Pt(300, 220), image.Pt(370, 460), gray(35), 4)

	// Camera body and lens.
	gocv.Rectangle(&m, image.Rect(265, 180, 335, 225), gray(20), -1)
	gocv.Circle(&m, image.Pt(345, 200), 14, gray(70), -1)
	gocv.Circle(&m, image.Pt(345, 200), 6, gray(230), -1)

	// Arm reaching to the camera.
	gocv.Line(&m, image.Pt(230, 220), image.Pt(275, 205), gray(40), 12)

	return safe.Adopt(m, "cameraman")
}

// Coins draws a 303x384 tray of 24 coins in a 4x6 grid.
func Coins() (*safe.Mat, error) {
	const rows, cols = 303, 384
	m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC1)
	verticalGradient(&m, 60, 40)

	for r := 0; r < 4; r++ {
		for c := 0; c < 6; c++ {
			center := image.Pt(38+c*62, 42+r*72)
			radius := 20 + (r*6+c)%4*3
			face := uint8(150 + (r*6+c)*4)
			gocv.Circle(&m, center, radius, gray(face), -1)
			gocv.Circle(&m, center, radius-5, gray(face-40), 2)
			gocv.Circle(&m, center, radius/3, gray(face+20), -1)
		}
	}

	return safe.Adopt(m, "coins")
}

// Astronaut draws a 512x512 color portrait and converts it to grayscale.
func Astronaut() (*safe.Mat, error) {
	const size = 512
	bgr := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(60, 30, 20, 0), size, size, gocv.MatTypeCV8UC3)
	defer bgr.Close()

	// Flag on the left.
	for i := 0; i < 7; i++ {
		stripe := color.RGBA{200, 30, 40, 0}
		if i%2 == 1 {
			stripe = color.RGBA{240, 240, 240, 0}
		}
		gocv.Rectangle(&bgr, image.Rect(0, 40+i*20, 150, 60+i*20), stripe, -1)
	}
	gocv.Rectangle(&bgr, image.Rect(0, 40, 70, 120), color.RGBA{30, 40, 140, 0}, -1)
	for y := 50; y < 115; y += 16 {
		for x := 8; x < 65; x += 14 {
			gocv.Circle(&bgr, image.Pt(x, y), 2, color.RGBA{255, 255, 255, 0}, -1)
		}
	}

	// Suit.
	suit := gocv.NewPointsVectorFromPoints([][]image.Point{{
		{120, 511}, {150, 360}, {256, 320}, {362, 360}, {392, 511},
	}})
	defer suit.Close()
	gocv.FillPoly(&bgr, suit, color.RGBA{235, 235, 230, 0})
	gocv.Rectangle(&bgr, image.Rect(215, 400, 297, 470), color.RGBA{170, 170, 175, 0}, -1)
	gocv.Circle(&bgr, image.Pt(190, 400), 14, color.RGBA{30, 60, 160, 0}, -1)
	gocv.Circle(&bgr, image.Pt(322, 400), 14, color.RGBA{200, 40, 40, 0}, -1)

	// Helmet ring, face and hair.
	gocv.Circle(&bgr, image.Pt(256, 220), 120, color.RGBA{220, 220, 215, 0}, 16)
	gocv.Ellipse(&bgr, image.Pt(256, 225), image.Pt(70, 90), 0, 0, 360, color.RGBA{225, 180, 150, 0}, -1)
	gocv.Ellipse(&bgr, image.Pt(256, 160), image.Pt(75, 40), 0, 180, 360, color.RGBA{120, 80, 40, 0}, -1)
	gocv.Circle(&bgr, image.Pt(228, 215), 7, color.RGBA{40, 30, 30, 0}, -1)
	gocv.Circle(&bgr, image.Pt(284, 215), 7, color.RGBA{40, 30, 30, 0}, -1)
	gocv.Ellipse(&bgr, image.Pt(256, 270), image.Pt(26, 12), 0, 0, 180, color.RGBA{160, 70, 70, 0}, 3)

	gocv.PutText(&bgr, "NASA", image.Pt(380, 470), gocv.FontHersheySimplex, 1.0, color.RGBA{30, 40, 140, 0}, 2)

	src, err := safe.NewMatFromMat(bgr)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	grayMat, err := conversion.ToGray(src)
	if err != nil {
		return nil, err
	}
	return grayMat.WithTag("astronaut"), nil
}
