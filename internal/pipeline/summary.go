package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cvlab/internal/stages/edge"
	"cvlab/internal/stages/features"
	"cvlab/internal/stages/filtering"
	"cvlab/internal/stages/geometry"
)

const SummaryFile = "SUMMARY_REPORT.txt"

// Section is one stage output directory listed in the summary and checked by Verify.
type Section struct {
	Dir   string
	CSV   string
	Title string
}

var Sections = []Section{
	{filtering.Dir, filtering.CSVName, "Filtering"},
	{edge.Dir, edge.CSVName, "Edge Detection"},
	{features.Dir, features.CSVName, "Feature Points"},
	{geometry.Dir, geometry.CSVName, "Geometry"},
}

// WriteSummary lists the files of every stage directory under root, plus the
// outcome of each stage that ran, and returns the summary path.
func WriteSummary(root string, result Result, now time.Time) (string, error) {
	var b strings.Builder

	b.WriteString("COMPUTER VISION PIPELINE SUMMARY REPORT\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&b, "Run Date: %s\n\n", now.Format("2006-01-02 15:04:05"))

	for _, s := range Sections {
		fmt.Fprintf(&b, "%s:\n", s.Title)
		b.WriteString(strings.Repeat("-", 20) + "\n")

		files, err := listFiles(filepath.Join(root, s.Dir))
		if err != nil {
			fmt.Fprintf(&b, "  Output directory not found: %s\n\n", s.Dir)
			continue
		}

		fmt.Fprintf(&b, "  Output directory: %s\n", s.Dir)
		fmt.Fprintf(&b, "  File count: %d\n", len(files))
		b.WriteString("  Generated files:\n")
		for _, f := range files {
			fmt.Fprintf(&b, "    - %s\n", f)
		}
		b.WriteString("\n")
	}

	if len(result.Stages) > 0 {
		b.WriteString("Stage Results:\n")
		for _, s := range result.Stages {
			if s.OK() {
				fmt.Fprintf(&b, "  %s: ok (%d images, %d records, %s)\n",
					s.Name, s.Images, s.Records, s.Duration.Round(time.Millisecond))
			} else {
				fmt.Fprintf(&b, "  %s: FAILED (%v)\n", s.Name, s.Err)
			}
		}
		b.WriteString("\n")
	}

	if len(result.Timings) > 0 {
		b.WriteString("Timing:\n")
		for _, t := range result.Timings {
			fmt.Fprintf(&b, "  %s: %d run(s), total %s, average %s\n",
				t.Operation, t.Count, t.Total.Round(time.Millisecond), t.Average.Round(time.Millisecond))
		}
		b.WriteString("\n")
	}

	b.WriteString("NOTES:\n")
	b.WriteString("- Check the CSV files for parameters and statistics\n")
	b.WriteString("- Geometry text files hold the full transform matrices\n")

	path := filepath.Join(root, SummaryFile)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create output root: %w", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
