package document

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

func (e *Extractor) extractImage(ctx context.Context, path string) (domain.Extraction, error) {
	dir, cleanup, err := e.mkdirTemp("img-ocr-*")
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrExtractionFailure, "extract image", err)
	}
	defer cleanup()

	grayPath := filepath.Join(dir, "gray.png")
	if err := writeGrayscale(path, grayPath); err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrExtractionFailure, "extract image", err)
	}

	text, err := e.tesseract(ctx, grayPath)
	if err != nil {
		if cerr := interrupted(ctx, "extract image"); cerr != nil {
			return domain.Extraction{}, cerr
		}
		return domain.Extraction{}, domain.WrapError(domain.ErrExtractionFailure, "extract image", err)
	}
	return domain.Extraction{
		Text:   strings.TrimSpace(text),
		Method: domain.ExtractionImageOCR,
		Pages:  1,
	}, nil
}

// writeGrayscale decodes src and stores an 8-bit grayscale PNG at dst.
func writeGrayscale(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer in.Close()

	img, format, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("could not read image file %s: %w", filepath.Base(src), err)
	}

	bounds := img.Bounds()
	gray, ok := img.(*image.Gray)
	if !ok {
		gray = image.NewGray(bounds)
		draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create grayscale image: %w", err)
	}
	if err := png.Encode(out, gray); err != nil {
		_ = out.Close()
		return fmt.Errorf("encode grayscale %s image: %w", format, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close grayscale image: %w", err)
	}
	return nil
}
