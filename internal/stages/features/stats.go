package features

import (
	"math"
	"path/filepath"
	"sort"
	"strconv"

	"cvlab/internal/report"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const SummaryName = "feature_summary.csv"

// DetectorStats summarizes detected-point counts of one detector across images.
// Std is the sample standard deviation and is NaN for a single image.
type DetectorStats struct {
	Detector string
	Images   int
	Mean     float64
	Std      float64
	Min      float64
	Max      float64
}

// Summarize groups records by detector, sorted by detector name.
func Summarize(records []report.Record) []DetectorStats {
	counts := make(map[string][]float64)
	for _, r := range records {
		counts[r.Operation] = append(counts[r.Operation], float64(r.Points))
	}

	detectors := make([]string, 0, len(counts))
	for d := range counts {
		detectors = append(detectors, d)
	}
	sort.Strings(detectors)

	out := make([]DetectorStats, 0, len(detectors))
	for _, d := range detectors {
		xs := counts[d]
		mean, std := stat.MeanStdDev(xs, nil)
		out = append(out, DetectorStats{
			Detector: d,
			Images:   len(xs),
			Mean:     mean,
			Std:      std,
			Min:      floats.Min(xs),
			Max:      floats.Max(xs),
		})
	}
	return out
}

// Finish writes the per-detector summary next to the statistics table.
func (s *Stage) Finish(table *report.Table, outDir string) error {
	summary := Summarize(table.Records())

	rows := make([][]string, 0, len(summary))
	for _, d := range summary {
		rows = append(rows, []string{
			d.Detector,
			strconv.Itoa(d.Images),
			formatStat(d.Mean),
			formatStat(d.Std),
			formatStat(d.Min),
			formatStat(d.Max),
		})
		s.opts.Log().Info("Features", "detector summary", map[string]interface{}{
			"detector": d.Detector,
			"mean":     formatStat(d.Mean),
			"std":      formatStat(d.Std),
			"min":      d.Min,
			"max":      d.Max,
		})
	}

	header := []string{"Feature Detector", "Images", "Mean", "Std", "Min", "Max"}
	return report.WriteRows(filepath.Join(outDir, SummaryName), header, rows)
}

// formatStat renders NaN as an empty cell.
func formatStat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
