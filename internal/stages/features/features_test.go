package features

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"cvlab/internal/opencv/safe"
	"cvlab/internal/report"
	"cvlab/internal/samples"
	"cvlab/internal/stages"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestProcess_Checkerboard(t *testing.T) {
	mat, err := samples.StandardBoard.Render()
	require.NoError(t, err)
	img := samples.Image{Name: "checkerboard", Mat: mat}
	defer img.Close()

	outDir := t.TempDir()
	records, err := New(stages.Options{}).Process(context.Background(), img, outDir)
	require.NoError(t, err)
	require.Len(t, records, 8)

	wantOps := []string{
		"Harris default", "Harris larger_block", "Harris larger_kernel", "Harris higher_k",
		"SIFT", "FAST thresh_10", "FAST thresh_20", "FAST thresh_30",
	}
	for i, r := range records {
		assert.Equal(t, wantOps[i], r.Operation)
		assert.GreaterOrEqual(t, r.Points, 0)
		assert.FileExists(t, filepath.Join(outDir, r.Output))
	}

	assert.Equal(t, "checkerboard_harris_default.png", records[0].Output)
	assert.Equal(t, "blockSize=2, ksize=3, k=0.04", records[0].Parameters)
	assert.Equal(t, "blockSize=2, ksize=3, k=0.06", records[3].Parameters)
	assert.Equal(t, "checkerboard_sift_features.png", records[4].Output)
	assert.Equal(t, "default SIFT parameters", records[4].Parameters)
	assert.Equal(t, "checkerboard_fast_thresh_20.png", records[6].Output)
	assert.Equal(t, "threshold = 20", records[6].Parameters)

	// A high-contrast board has plenty of Harris corners.
	assert.Greater(t, records[0].Points, 0)

	overlay := gocv.IMRead(filepath.Join(outDir, "checkerboard_harris_default.png"), gocv.IMReadColor)
	defer overlay.Close()
	assert.Equal(t, 3, overlay.Channels())
}

func TestProcess_FlatImageHasNoCorners(t *testing.T) {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(90, 0, 0, 0), 32, 32, gocv.MatTypeCV8UC1)
	mat, err := safe.Adopt(m, "flat")
	require.NoError(t, err)
	img := samples.Image{Name: "flat", Mat: mat}
	defer img.Close()

	records, err := New(stages.Options{}).Process(context.Background(), img, t.TempDir())
	require.NoError(t, err)
	require.Len(t, records, 8)

	for _, r := range records[:4] {
		assert.Equal(t, 0, r.Points, r.Operation)
	}
}

func TestHarrisCorners_Scaling(t *testing.T) {
	board, err := samples.StandardBoard.Render()
	require.NoError(t, err)
	defer board.Close()

	response := HarrisResponse(board.GetMat(), HarrisGrid[0])
	defer response.Close()
	mask, count := HarrisCorners(response)
	defer mask.Close()

	scaled := response.Clone()
	defer scaled.Close()
	scaled.MultiplyFloat(1024)
	mask2, count2 := HarrisCorners(scaled)
	defer mask2.Close()

	assert.Equal(t, count, count2)
	assert.Equal(t, gocv.MatTypeCV8UC1, mask.Type())
}

func TestSummarize(t *testing.T) {
	records := []report.Record{
		{Source: "a", Operation: "SIFT", Points: 10},
		{Source: "b", Operation: "SIFT", Points: 20},
		{Source: "c", Operation: "SIFT", Points: 30},
		{Source: "a", Operation: "FAST thresh_10", Points: 5},
	}

	summary := Summarize(records)
	require.Len(t, summary, 2)

	assert.Equal(t, "FAST thresh_10", summary[0].Detector)
	assert.Equal(t, 1, summary[0].Images)
	assert.True(t, math.IsNaN(summary[0].Std))

	sift := summary[1]
	assert.Equal(t, "SIFT", sift.Detector)
	assert.InDelta(t, 20, sift.Mean, 1e-9)
	assert.InDelta(t, 10, sift.Std, 1e-9)
	assert.Equal(t, 10.0, sift.Min)
	assert.Equal(t, 30.0, sift.Max)
}

func TestFinish_WritesSummary(t *testing.T) {
	s := New(stages.Options{})
	table := report.NewTable(s.Schema())
	table.Append(
		report.Record{Source: "a", Operation: "SIFT", Points: 4},
		report.Record{Source: "b", Operation: "SIFT", Points: 6},
	)

	outDir := t.TempDir()
	require.NoError(t, s.Finish(table, outDir))

	header, rows, err := report.ReadCSV(filepath.Join(outDir, SummaryName))
	require.NoError(t, err)
	assert.Equal(t, []string{"Feature Detector", "Images", "Mean", "Std", "Min", "Max"}, header)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"SIFT", "2", "5.00", "1.41", "4.00", "6.00"}, rows[0])
}
