package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cvlab/internal/config"
	"cvlab/internal/opencv/safe"
	"cvlab/internal/report"
	"cvlab/internal/samples"
	"cvlab/internal/stages"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// fakeSource hands out n small gray images per Load.
type fakeSource struct {
	n     int
	loads int
}

func (f *fakeSource) Load(ctx context.Context) ([]samples.Image, error) {
	f.loads++
	images := make([]samples.Image, 0, f.n)
	for i := 0; i < f.n; i++ {
		m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(40*i), 0, 0, 0), 8, 8, gocv.MatTypeCV8UC1)
		mat, err := safe.Adopt(m, "fake")
		if err != nil {
			return nil, err
		}
		images = append(images, samples.Image{Name: string(rune('a' + i)), Mat: mat})
	}
	return images, nil
}

type fakeStage struct {
	name   string
	dir    string
	fail   bool
	panics bool
}

func (s *fakeStage) Name() string    { return s.name }
func (s *fakeStage) Dir() string     { return s.dir }
func (s *fakeStage) CSVName() string { return s.name + ".csv" }
func (s *fakeStage) Schema() report.Schema {
	return report.Schema{OperationHeader: "Op", Columns: []report.Column{report.ColSource, report.ColOperation, report.ColOutput}}
}

func (s *fakeStage) Process(ctx context.Context, img samples.Image, outDir string) ([]report.Record, error) {
	if s.panics {
		panic("boom")
	}
	if s.fail {
		return nil, errors.New("broken stage")
	}
	out := img.Name + "_" + s.name + ".txt"
	if err := os.WriteFile(filepath.Join(outDir, out), []byte("x"), 0o644); err != nil {
		return nil, err
	}
	return []report.Record{{Source: img.Name, Operation: s.name, Output: out}}, nil
}

func TestRun_FailingStageDoesNotStopOthers(t *testing.T) {
	root := t.TempDir()
	list := []stages.Stage{
		&fakeStage{name: "first", dir: Sections[0].Dir},
		&fakeStage{name: "broken", dir: Sections[1].Dir, fail: true},
		&fakeStage{name: "panicky", dir: Sections[2].Dir, panics: true},
		&fakeStage{name: "last", dir: Sections[3].Dir},
	}
	src := &fakeSource{n: 2}

	result, err := NewCoordinator(root, src, list, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "last"}, result.Succeeded())
	assert.Equal(t, []string{"broken", "panicky"}, result.Failed())
	assert.False(t, result.OK())
	assert.Equal(t, 4, src.loads)
	assert.Contains(t, result.Stages[2].Err.Error(), "panicked")

	_, rows, err := report.ReadCSV(filepath.Join(root, Sections[3].Dir, "last.csv"))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	summary, err := os.ReadFile(result.SummaryPath)
	require.NoError(t, err)
	assert.Contains(t, string(summary), "broken: FAILED")
	assert.Contains(t, string(summary), "last: ok (2 images, 2 records")
	assert.Contains(t, string(summary), "Timing:\n")
	assert.Contains(t, string(summary), "  first/image: 2 run(s), total ")
	assert.Contains(t, string(summary), "  broken/image: 1 run(s), total ")
}

func TestRun_TimingsPerRun(t *testing.T) {
	list := []stages.Stage{&fakeStage{name: "only", dir: Sections[0].Dir}}
	c := NewCoordinator(t.TempDir(), &fakeSource{n: 3}, list, nil)

	for i := 0; i < 2; i++ {
		result, err := c.Run(context.Background())
		require.NoError(t, err)

		require.Len(t, result.Timings, 2)
		assert.Equal(t, "only", result.Timings[0].Operation)
		assert.Equal(t, 1, result.Timings[0].Count)
		assert.Equal(t, "only/image", result.Timings[1].Operation)
		assert.Equal(t, 3, result.Timings[1].Count)
		assert.LessOrEqual(t, result.Timings[1].Average, result.Timings[1].Total)
	}
}

func TestRun_Cancelled(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewCoordinator(root, &fakeSource{n: 1}, []stages.Stage{
		&fakeStage{name: "first", dir: Sections[0].Dir},
	}, nil).Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.Stages)
	assert.FileExists(t, filepath.Join(root, SummaryFile))
}

func TestWriteSummary(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, Sections[0].Dir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range []string{"b.png", "a.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	path, err := WriteSummary(root, Result{}, time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "Run Date: 2024-05-06 07:08:09")
	assert.Contains(t, text, "  File count: 2\n  Generated files:\n    - a.png\n    - b.png\n")
	assert.Contains(t, text, "Output directory not found: 02_edge/output")
	assert.NotContains(t, text, "Stage Results:")
}

func TestVerify(t *testing.T) {
	root := t.TempDir()

	checks, err := Verify(root)
	require.Error(t, err)
	require.Len(t, checks, 5)
	for _, c := range checks {
		assert.False(t, c.OK(), c.Path)
	}

	for _, s := range Sections {
		dir := filepath.Join(root, s.Dir)
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	_, err = Verify(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")

	for _, s := range Sections {
		require.NoError(t, os.WriteFile(filepath.Join(root, s.Dir, "x.png"), nil, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, SummaryFile), nil, 0o644))

	_, err = Verify(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "01_filtering/output: missing filtering_parameters.csv")

	for _, s := range Sections {
		require.NoError(t, os.WriteFile(filepath.Join(root, s.Dir, s.CSV), []byte("Image Source,Output Filename\n"), 0o644))
	}
	_, err = Verify(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "04_geometry/output: no rows in geometry_parameters.csv")

	for _, s := range Sections {
		require.NoError(t, os.WriteFile(filepath.Join(root, s.Dir, s.CSV), []byte("Image Source,Output Filename\ncoins,coins_x.png\n"), 0o644))
	}
	checks, err = Verify(root)
	require.NoError(t, err)
	for _, c := range checks {
		assert.True(t, c.OK(), c.Path)
	}
	assert.Equal(t, 2, checks[0].Files)
	assert.Equal(t, 1, checks[0].Rows)
}

func TestDefaultStages_OrderAndDirs(t *testing.T) {
	list := DefaultStages(config.Default(), stages.Options{})
	require.Len(t, list, len(Sections))
	for i, st := range list {
		assert.Equal(t, Sections[i].Dir, st.Dir())
		assert.Equal(t, Sections[i].CSV, st.CSVName())
	}

	cfg := config.Default()
	cfg.Stages = []string{config.StageGeometry, config.StageEdge}
	list = DefaultStages(cfg, stages.Options{})
	require.Len(t, list, 2)
	assert.Equal(t, "edge", list[0].Name())
	assert.Equal(t, "geometry", list[1].Name())
}

func TestRun_FullPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("full pipeline in short mode")
	}

	root := t.TempDir()
	provider := samples.NewProvider("", filepath.Join(root, "my_photo.jpg"), nil)
	list := DefaultStages(config.Default(), stages.Options{})

	result, err := NewCoordinator(root, provider, list, nil).Run(context.Background())
	require.NoError(t, err)
	require.True(t, result.OK(), "failed: %v", result.Failed())

	wantRows := map[string]int{
		"01_filtering/output/filtering_parameters.csv":   36,
		"02_edge/output/edge_parameters.csv":             24,
		"03_featurepoints/output/feature_statistics.csv": 32,
		"04_geometry/output/geometry_parameters.csv":     9,
		"03_featurepoints/output/feature_summary.csv":    8,
	}
	for rel, n := range wantRows {
		_, rows, err := report.ReadCSV(filepath.Join(root, rel))
		require.NoError(t, err, rel)
		assert.Len(t, rows, n, rel)
	}

	_, rows, err := report.ReadCSV(filepath.Join(root, "01_filtering/output/filtering_parameters.csv"))
	require.NoError(t, err)
	for _, row := range rows[:9] {
		assert.Equal(t, "cameraman", row[0])
		assert.True(t, strings.HasPrefix(row[3], "cameraman_"))
	}

	_, err = Verify(root)
	require.NoError(t, err)

	// Re-running overwrites by name and produces the same set of files.
	before, err := listFiles(filepath.Join(root, Sections[0].Dir))
	require.NoError(t, err)
	_, err = NewCoordinator(root, provider, list, nil).Run(context.Background())
	require.NoError(t, err)
	after, err := listFiles(filepath.Join(root, Sections[0].Dir))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
