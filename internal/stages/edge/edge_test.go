package edge

import (
	"context"
	"path/filepath"
	"testing"

	"cvlab/internal/opencv/safe"
	"cvlab/internal/samples"
	"cvlab/internal/stages"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestProcess_Coins(t *testing.T) {
	mat, err := samples.Coins()
	require.NoError(t, err)
	img := samples.Image{Name: "coins", Mat: mat}
	defer img.Close()

	outDir := t.TempDir()
	records, err := New(stages.Options{}).Process(context.Background(), img, outDir)
	require.NoError(t, err)
	require.Len(t, records, 6)

	want := []struct{ op, params, file string }{
		{"Sobel", "ksize = 3", "coins_sobel_k3.png"},
		{"Sobel", "ksize = 5", "coins_sobel_k5.png"},
		{"Canny", "low_threshold = 50, high_threshold = 150", "coins_canny_low_50_150.png"},
		{"Canny", "low_threshold = 100, high_threshold = 200", "coins_canny_medium_100_200.png"},
		{"Canny", "low_threshold = 150, high_threshold = 250", "coins_canny_high_150_250.png"},
		{"Canny Downsampled", "low_threshold = 50, high_threshold = 150, scale = 0.5", "coins_canny_downsampled.png"},
	}
	for i, w := range want {
		assert.Equal(t, "coins", records[i].Source)
		assert.Equal(t, w.op, records[i].Operation)
		assert.Equal(t, w.params, records[i].Parameters)
		assert.Equal(t, w.file, records[i].Output)
		assert.FileExists(t, filepath.Join(outDir, w.file))
	}

	down := gocv.IMRead(filepath.Join(outDir, "coins_canny_downsampled.png"), gocv.IMReadGrayScale)
	defer down.Close()
	assert.Equal(t, 151, down.Rows())
	assert.Equal(t, 192, down.Cols())
}

func TestProcess_FlatImageGivesZeroMagnitude(t *testing.T) {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(77, 0, 0, 0), 9, 9, gocv.MatTypeCV8UC1)
	mat, err := safe.Adopt(m, "flat")
	require.NoError(t, err)
	img := samples.Image{Name: "flat", Mat: mat}
	defer img.Close()

	outDir := t.TempDir()
	records, err := New(stages.Options{}).Process(context.Background(), img, outDir)
	require.NoError(t, err)
	assert.Len(t, records, 6)

	sobel := gocv.IMRead(filepath.Join(outDir, "flat_sobel_k3.png"), gocv.IMReadGrayScale)
	defer sobel.Close()
	assert.Equal(t, 0, gocv.CountNonZero(sobel))
}

func TestDownsample(t *testing.T) {
	src := gocv.NewMatWithSize(7, 5, gocv.MatTypeCV8UC1)
	defer src.Close()

	dst := Downsample(src)
	defer dst.Close()
	assert.Equal(t, 3, dst.Rows())
	assert.Equal(t, 2, dst.Cols())
}

func TestSchema(t *testing.T) {
	s := New(stages.Options{})
	assert.Equal(t, []string{"Image Source", "Edge Detection Method", "Parameters", "Output Filename"}, s.Schema().Header())
	assert.Equal(t, "02_edge/output", s.Dir())
}
