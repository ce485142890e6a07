// Package pipeline runs the transform stages in a fixed order, writes each
// stage's CSV table and the run summary, and verifies the produced outputs.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"cvlab/internal/config"
	"cvlab/internal/logger"
	"cvlab/internal/report"
	"cvlab/internal/samples"
	"cvlab/internal/stages"
	"cvlab/internal/stages/edge"
	"cvlab/internal/stages/features"
	"cvlab/internal/stages/filtering"
	"cvlab/internal/stages/geometry"
	"cvlab/internal/timing"
)

// ImageSource supplies a fresh set of images; the caller closes them.
type ImageSource interface {
	Load(ctx context.Context) ([]samples.Image, error)
}

type StageResult struct {
	Name     string
	Dir      string
	Images   int
	Records  int
	Duration time.Duration
	Err      error
}

func (r StageResult) OK() bool {
	return r.Err == nil
}

// OperationTiming aggregates the durations recorded for one operation: a
// stage name, or "<stage>/image" for the per-image work inside it.
type OperationTiming struct {
	Operation string
	Count     int
	Total     time.Duration
	Average   time.Duration
}

type Result struct {
	Stages      []StageResult
	Timings     []OperationTiming
	SummaryPath string
}

func (r Result) Succeeded() []string {
	var names []string
	for _, s := range r.Stages {
		if s.OK() {
			names = append(names, s.Name)
		}
	}
	return names
}

func (r Result) Failed() []string {
	var names []string
	for _, s := range r.Stages {
		if !s.OK() {
			names = append(names, s.Name)
		}
	}
	return names
}

func (r Result) OK() bool {
	return len(r.Failed()) == 0
}

type Coordinator struct {
	root   string
	source ImageSource
	stages []stages.Stage
	logger logger.Logger
	timer  *timing.Tracker
	now    func() time.Time
}

func NewCoordinator(root string, source ImageSource, list []stages.Stage, log logger.Logger) *Coordinator {
	return &Coordinator{
		root:   root,
		source: source,
		stages: list,
		logger: logger.OrNop(log),
		timer:  timing.NewTracker(),
		now:    time.Now,
	}
}

// DefaultStages returns the enabled stages in their fixed order:
// filtering, edge, features, geometry.
func DefaultStages(cfg config.Config, opts stages.Options) []stages.Stage {
	all := []struct {
		name  string
		stage stages.Stage
	}{
		{config.StageFiltering, filtering.New(opts)},
		{config.StageEdge, edge.New(opts)},
		{config.StageFeatures, features.New(opts)},
		{config.StageGeometry, geometry.New(opts)},
	}

	list := make([]stages.Stage, 0, len(all))
	for _, s := range all {
		if cfg.Enabled(s.name) {
			list = append(list, s.stage)
		}
	}
	return list
}

// Run executes every stage, then writes SUMMARY_REPORT.txt. A failing stage is
// recorded and the next one still runs. The returned error is non-nil only when
// the context was cancelled or the summary could not be written.
func (c *Coordinator) Run(ctx context.Context) (Result, error) {
	var result Result
	c.timer.Reset()

	c.logger.Info("Pipeline", "run started", map[string]interface{}{
		"output_root": c.root,
		"stages":      len(c.stages),
	})

	var runErr error
	for _, st := range c.stages {
		if err := stages.Checkpoint(ctx); err != nil {
			runErr = err
			break
		}
		result.Stages = append(result.Stages, c.RunStage(ctx, st))
	}
	result.Timings = c.Timings()

	summaryPath, err := WriteSummary(c.root, result, c.now())
	if err != nil {
		return result, err
	}
	result.SummaryPath = summaryPath

	c.logger.Info("Pipeline", "run finished", map[string]interface{}{
		"succeeded": len(result.Succeeded()),
		"failed":    len(result.Failed()),
		"summary":   summaryPath,
	})

	return result, runErr
}

// RunStage processes every image from the source with st and writes its CSV.
// Errors and panics are captured in the returned StageResult.
func (c *Coordinator) RunStage(ctx context.Context, st stages.Stage) (res StageResult) {
	res = StageResult{Name: st.Name(), Dir: st.Dir()}

	timingCtx := c.timer.StartTiming(ctx, st.Name())
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("stage %s panicked: %v", st.Name(), r)
		}
		res.Duration = c.timer.EndTiming(timingCtx)

		if res.Err != nil {
			c.logger.Error("Pipeline", res.Err, map[string]interface{}{"stage": res.Name})
			return
		}
		c.logger.Info("Pipeline", "stage completed", map[string]interface{}{
			"stage":    res.Name,
			"images":   res.Images,
			"records":  res.Records,
			"duration": res.Duration.String(),
		})
	}()

	c.logger.Info("Pipeline", "stage started", map[string]interface{}{"stage": st.Name()})

	outDir := filepath.Join(c.root, st.Dir())
	if err := stages.EnsureDir(outDir); err != nil {
		res.Err = err
		return res
	}

	images, err := c.source.Load(ctx)
	if err != nil {
		res.Err = fmt.Errorf("load images: %w", err)
		return res
	}
	defer samples.CloseAll(images)

	table := report.NewTable(st.Schema())
	for _, img := range images {
		if err := stages.Checkpoint(ctx); err != nil {
			res.Err = err
			return res
		}

		imageCtx := c.timer.StartTiming(ctx, st.Name()+"/image")
		records, err := st.Process(imageCtx, img, outDir)
		c.timer.EndTiming(imageCtx)
		if err != nil {
			res.Err = fmt.Errorf("image %s: %w", img.Name, err)
			return res
		}
		table.Append(records...)
		res.Images++
	}

	if err := table.WriteCSV(filepath.Join(outDir, st.CSVName())); err != nil {
		res.Err = err
		return res
	}
	res.Records = table.Len()
	c.logger.Debug("Pipeline", "table written", map[string]interface{}{
		"stage":   st.Name(),
		"csv":     st.CSVName(),
		"sources": table.Sources(),
	})

	if f, ok := st.(stages.Finisher); ok {
		if err := f.Finish(table, outDir); err != nil {
			res.Err = fmt.Errorf("finish: %w", err)
			return res
		}
	}

	return res
}

// Timings returns the recorded durations per operation, sorted by operation name.
func (c *Coordinator) Timings() []OperationTiming {
	ops := c.timer.Operations()
	out := make([]OperationTiming, 0, len(ops))
	for _, op := range ops {
		out = append(out, OperationTiming{
			Operation: op,
			Count:     len(c.timer.GetTimings(op)),
			Total:     c.timer.Total(op),
			Average:   c.timer.GetAverageTime(op),
		})
	}
	return out
}
