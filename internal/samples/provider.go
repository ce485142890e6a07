// Package samples supplies the fixed set of standard test images plus an
// optional personal photo, all as 8-bit grayscale Mats.
package samples

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cvlab/internal/logger"
	"cvlab/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const PersonalName = "personal_image"

// Image is a named grayscale source image. The stages never modify Mat.
type Image struct {
	Name string
	Mat  *safe.Mat
}

func (i Image) Close() {
	if i.Mat != nil {
		i.Mat.Close()
	}
}

func CloseAll(images []Image) {
	for _, img := range images {
		img.Close()
	}
}

type generator struct {
	name string
	fn   func() (*safe.Mat, error)
}

var standard = []generator{
	{"cameraman", Cameraman},
	{"coins", Coins},
	{"checkerboard", StandardBoard.Render},
	{"astronaut", Astronaut},
}

// StandardNames lists the standard images in processing order.
func StandardNames() []string {
	names := make([]string, len(standard))
	for i, g := range standard {
		names[i] = g.name
	}
	return names
}

type Provider struct {
	samplesDir string
	photoPath  string
	log        logger.Logger
}

// NewProvider builds a provider. samplesDir may be empty; when set, files named
// <name>.png or <name>.jpg there replace the generated images.
func NewProvider(samplesDir, photoPath string, log logger.Logger) *Provider {
	return &Provider{
		samplesDir: samplesDir,
		photoPath:  photoPath,
		log:        logger.OrNop(log),
	}
}

// Load returns the standard images followed by the personal photo when it can be read.
// A missing or undecodable photo is logged and skipped.
func (p *Provider) Load(ctx context.Context) ([]Image, error) {
	images, err := p.Standard(ctx)
	if err != nil {
		return nil, err
	}

	photo, err := p.Photo()
	switch {
	case errors.Is(err, ErrPhotoMissing):
		p.log.Warning("Samples", "personal photo not found, skipping", map[string]interface{}{
			"path": p.photoPath,
		})
	case err != nil:
		p.log.Error("Samples", err, map[string]interface{}{"path": p.photoPath})
	default:
		images = append(images, photo)
	}

	return images, nil
}

func (p *Provider) Standard(ctx context.Context) ([]Image, error) {
	images := make([]Image, 0, len(standard)+1)

	for _, g := range standard {
		if err := ctx.Err(); err != nil {
			CloseAll(images)
			return nil, err
		}

		mat, source, err := p.standardImage(g)
		if err != nil {
			CloseAll(images)
			return nil, fmt.Errorf("sample %s: %w", g.name, err)
		}

		p.log.Debug("Samples", "image ready", map[string]interface{}{
			"image":  g.name,
			"source": source,
			"width":  mat.Cols(),
			"height": mat.Rows(),
		})
		images = append(images, Image{Name: g.name, Mat: mat})
	}

	return images, nil
}

func (p *Provider) standardImage(g generator) (*safe.Mat, string, error) {
	if p.samplesDir != "" {
		for _, ext := range []string{".png", ".jpg"} {
			path := filepath.Join(p.samplesDir, g.name+ext)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			mat, err := readGray(path)
			return mat, path, err
		}
	}

	mat, err := g.fn()
	return mat, "generated", err
}

// Photo loads the configured personal photo under the name personal_image.
func (p *Provider) Photo() (Image, error) {
	if p.photoPath == "" {
		return Image{}, ErrPhotoMissing
	}

	mat, err := LoadPhoto(p.photoPath)
	if err != nil {
		return Image{}, err
	}
	return Image{Name: PersonalName, Mat: mat}, nil
}

func readGray(path string) (*safe.Mat, error) {
	m := gocv.IMRead(path, gocv.IMReadGrayScale)
	if m.Empty() {
		m.Close()
		return nil, fmt.Errorf("cannot decode %s", path)
	}

	mat, err := safe.Adopt(m, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if err := safe.ValidateGray(mat, "read sample"); err != nil {
		mat.Close()
		return nil, err
	}
	return mat, nil
}
