package samples

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cvlab/internal/opencv/conversion"
	"cvlab/internal/opencv/safe"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrPhotoMissing means the optional personal photo does not exist on disk.
var ErrPhotoMissing = errors.New("personal photo not found")

// LoadPhoto decodes the image at path, applies its EXIF orientation and
// returns it as an 8-bit grayscale Mat.
func LoadPhoto(path string) (*safe.Mat, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPhotoMissing, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s (%s): %w", path, formatOf(path), err)
	}

	mat, err := conversion.ImageToGrayMat(imaging.Grayscale(img))
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", path, err)
	}

	if err := safe.ValidateGray(mat, "load photo"); err != nil {
		mat.Close()
		return nil, err
	}
	return mat.WithTag("photo"), nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tiff", ".tif":
		return "tiff"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".bmp":
		return "bmp"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	default:
		return "unknown"
	}
}
