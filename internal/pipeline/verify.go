package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cvlab/internal/report"
)

// Check is the outcome of one verification step.
type Check struct {
	Path    string
	Files   int
	Rows    int
	Problem string
}

func (c Check) OK() bool {
	return c.Problem == ""
}

// Verify checks that every stage directory exists, is non-empty and holds a
// parameter CSV with at least one row, and that the summary file exists. The
// error joins every failed check.
func Verify(root string) ([]Check, error) {
	checks := make([]Check, 0, len(Sections)+1)
	var errs []error

	for _, s := range Sections {
		c := Check{Path: s.Dir}

		files, err := listFiles(filepath.Join(root, s.Dir))
		switch {
		case err != nil:
			c.Problem = "not found"
		case len(files) == 0:
			c.Problem = "empty"
		default:
			c.Files = len(files)
			c.Rows, c.Problem = csvRows(filepath.Join(root, s.Dir, s.CSV))
		}

		if !c.OK() {
			errs = append(errs, fmt.Errorf("%s: %s", c.Path, c.Problem))
		}
		checks = append(checks, c)
	}

	summary := Check{Path: SummaryFile}
	if info, err := os.Stat(filepath.Join(root, SummaryFile)); err != nil || info.IsDir() {
		summary.Problem = "not found"
		errs = append(errs, fmt.Errorf("%s: %s", summary.Path, summary.Problem))
	}
	checks = append(checks, summary)

	return checks, errors.Join(errs...)
}

func csvRows(path string) (int, string) {
	_, rows, err := report.ReadCSV(path)
	switch {
	case err != nil:
		return 0, "missing " + filepath.Base(path)
	case len(rows) == 0:
		return 0, "no rows in " + filepath.Base(path)
	default:
		return len(rows), ""
	}
}
