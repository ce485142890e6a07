package samples

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"cvlab/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestStandardImageSizes(t *testing.T) {
	tests := []struct {
		name       string
		rows, cols int
	}{
		{"cameraman", 512, 512},
		{"coins", 303, 384},
		{"checkerboard", 250, 250},
		{"astronaut", 512, 512},
	}

	p := NewProvider("", "", nil)
	images, err := p.Standard(context.Background())
	require.NoError(t, err)
	defer CloseAll(images)

	require.Len(t, images, len(tests))
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := images[i]
			assert.Equal(t, tt.name, img.Name)
			assert.Equal(t, tt.rows, img.Mat.Rows())
			assert.Equal(t, tt.cols, img.Mat.Cols())
			assert.Equal(t, gocv.MatTypeCV8UC1, img.Mat.Type())
			assert.NotZero(t, gocv.CountNonZero(img.Mat.GetMat()))
		})
	}
}

func TestStandardNames(t *testing.T) {
	assert.Equal(t, []string{"cameraman", "coins", "checkerboard", "astronaut"}, StandardNames())
}

func TestStandardBoardIsDetectable(t *testing.T) {
	board, err := StandardBoard.Render()
	require.NoError(t, err)
	defer board.Close()

	corners := gocv.NewMat()
	defer corners.Close()

	found := gocv.FindChessboardCorners(board.GetMat(), image.Pt(7, 7), &corners,
		gocv.CalibCBAdaptiveThresh|gocv.CalibCBNormalizeImage)
	require.True(t, found)
	assert.Equal(t, 49, corners.Rows()*corners.Cols())
}

func TestBoardRender(t *testing.T) {
	board, err := CalibrationBoard.Render()
	require.NoError(t, err)
	defer board.Close()

	assert.Equal(t, 450, board.Cols())
	assert.Equal(t, 350, board.Rows())

	m := board.GetMat()
	assert.Equal(t, uint8(255), m.GetUCharAt(10, 10))
	assert.Equal(t, uint8(0), m.GetUCharAt(10, 60))
}

func TestBoardValidate(t *testing.T) {
	assert.Error(t, Board{CornersX: 1, CornersY: 5, Square: 10}.Validate())
	assert.Error(t, Board{CornersX: 3, CornersY: 3, Square: 1}.Validate())
	assert.Error(t, Board{CornersX: 3, CornersY: 3, Square: 10, Margin: -1}.Validate())
	assert.NoError(t, StandardBoard.Validate())
}

func TestProvider_SamplesDirOverride(t *testing.T) {
	dir := t.TempDir()
	replacement := image.NewGray(image.Rect(0, 0, 16, 8))
	replacement.SetGray(3, 3, color.Gray{Y: 255})
	writePNG(t, filepath.Join(dir, "coins.png"), replacement)

	images, err := NewProvider(dir, "", nil).Standard(context.Background())
	require.NoError(t, err)
	defer CloseAll(images)

	assert.Equal(t, "coins", images[1].Name)
	assert.Equal(t, 8, images[1].Mat.Rows())
	assert.Equal(t, 16, images[1].Mat.Cols())
	assert.Equal(t, 512, images[0].Mat.Rows())
}

func TestProvider_LoadSkipsMissingPhoto(t *testing.T) {
	p := NewProvider("", filepath.Join(t.TempDir(), "my_photo.jpg"), logger.Nop{})

	images, err := p.Load(context.Background())
	require.NoError(t, err)
	defer CloseAll(images)

	assert.Len(t, images, 4)

	_, err = p.Photo()
	assert.True(t, errors.Is(err, ErrPhotoMissing))
}

func TestProvider_LoadIncludesPhoto(t *testing.T) {
	path := filepath.Join(t.TempDir(), "me.png")
	photo := image.NewRGBA(image.Rect(0, 0, 2, 2))
	photo.Set(0, 0, color.RGBA{255, 255, 255, 255})
	writePNG(t, path, photo)

	images, err := NewProvider("", path, nil).Load(context.Background())
	require.NoError(t, err)
	defer CloseAll(images)

	require.Len(t, images, 5)
	last := images[4]
	assert.Equal(t, PersonalName, last.Name)
	assert.Equal(t, 2, last.Mat.Rows())
	assert.Equal(t, 1, last.Mat.Channels())

	m := last.Mat.GetMat()
	assert.Equal(t, uint8(255), m.GetUCharAt(0, 0))
}

func TestProvider_UndecodablePhotoSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	images, err := NewProvider("", path, nil).Load(context.Background())
	require.NoError(t, err)
	defer CloseAll(images)
	assert.Len(t, images, 4)

	_, err = LoadPhoto(path)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrPhotoMissing))
}

func TestProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProvider("", "", nil).Standard(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
