package safe

import (
	"fmt"

	"gocv.io/x/gocv"
)

// MinImageSide is the smallest width or height any stage accepts.
const MinImageSide = 2

func ValidateMatForOperation(mat *Mat, operation string) error {
	if mat == nil {
		return fmt.Errorf("Mat is nil for operation: %s", operation)
	}

	if !mat.IsValid() {
		return fmt.Errorf("%s is invalid for operation: %s", label(mat), operation)
	}

	if mat.Empty() {
		return fmt.Errorf("%s is empty for operation: %s", label(mat), operation)
	}

	if mat.Rows() < MinImageSide || mat.Cols() < MinImageSide {
		return fmt.Errorf("%s has unsupported dimensions %dx%d for operation: %s",
			label(mat), mat.Cols(), mat.Rows(), operation)
	}

	return nil
}

// ValidateGray checks that mat is an 8-bit single-channel image.
func ValidateGray(mat *Mat, operation string) error {
	if err := ValidateMatForOperation(mat, operation); err != nil {
		return err
	}
	if mat.Type() != gocv.MatTypeCV8UC1 {
		return fmt.Errorf("%s requires an 8-bit grayscale Mat, %s has type %d with %d channels",
			operation, label(mat), int(mat.Type()), mat.Channels())
	}
	return nil
}

func ValidateDimensions(width, height int, operation string) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d for operation: %s", width, height, operation)
	}

	if width > 32768 || height > 32768 {
		return fmt.Errorf("dimensions %dx%d exceed maximum size for operation: %s", width, height, operation)
	}

	return nil
}

func label(mat *Mat) string {
	if mat.Tag() == "" {
		return "Mat"
	}
	return fmt.Sprintf("Mat %q", mat.Tag())
}
