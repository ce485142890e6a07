package geometry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// WriteParameters dumps every matrix in res to <outDir>/<name>_geometry_parameters.txt.
func WriteParameters(outDir string, res *Result) error {
	var b strings.Builder

	b.WriteString("--- Geometric Transform Parameters ---\n\n")
	fmt.Fprintf(&b, "Source Image: %s\n", res.Name)
	fmt.Fprintf(&b, "Image Dimensions: %d x %d\n\n", res.Width, res.Height)

	b.WriteString("1. Perspective Transform:\n")
	fmt.Fprintf(&b, "Source Points:\n%s\n\n", points(res.Source[:]))
	fmt.Fprintf(&b, "Destination Points:\n%s\n\n", points(res.Destination[:]))
	fmt.Fprintf(&b, "Perspective Matrix:\n%s\n\n", matrix(res.Perspective))

	b.WriteString("2. Rotation Transform:\n")
	fmt.Fprintf(&b, "Rotation Angle: %g degrees\n", RotationAngle)
	fmt.Fprintf(&b, "Rotation Center: (%d, %d)\n", res.Center.X, res.Center.Y)
	fmt.Fprintf(&b, "Rotation Matrix:\n%s\n\n", matrix(res.Rotation))

	if cal := res.Calibration; cal != nil {
		b.WriteString("3. Camera Calibration Parameters:\n")
		fmt.Fprintf(&b, "Camera Matrix:\n%s\n\n", matrix(cal.Camera))
		fmt.Fprintf(&b, "Distortion Coefficients:\n%s\n\n", matrix(cal.Distortion))
		fmt.Fprintf(&b, "Rotation Vector:\n%s\n\n", matrix(mat.NewDense(3, 1, cal.RVec[:])))
		fmt.Fprintf(&b, "Translation Vector:\n%s\n", matrix(mat.NewDense(3, 1, cal.TVec[:])))
	}

	path := filepath.Join(outDir, res.Name+"_geometry_parameters.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func matrix(m *mat.Dense) string {
	if m == nil {
		return "[]"
	}
	return fmt.Sprintf("%.6g", mat.Formatted(m, mat.Squeeze()))
}

func points(pts []gocv.Point2f) string {
	rows := make([]string, len(pts))
	for i, p := range pts {
		rows[i] = fmt.Sprintf("[%g %g]", p.X, p.Y)
	}
	return strings.Join(rows, "\n")
}
