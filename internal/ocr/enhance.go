package ocr

import (
	"fmt"

	"github.com/disintegration/imaging"
)

// enhanceForOCR rewrites a rendered page in place as a sharpened,
// higher-contrast grayscale image.
func enhanceForOCR(path string) error {
	src, err := imaging.Open(path)
	if err != nil {
		return fmt.Errorf("open page image: %w", err)
	}
	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 20)
	img = imaging.Sharpen(img, 1.0)
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("save page image: %w", err)
	}
	return nil
}
