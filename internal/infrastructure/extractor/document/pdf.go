package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

var pageMarker = regexp.MustCompile(`(?m)^--- End of Page \d+ ---$`)

func stripPageMarkers(text string) string {
	return pageMarker.ReplaceAllString(text, "")
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (domain.Extraction, error) {
	text, pages, err := e.readTextLayer(path)
	if err != nil {
		// Some PDFs the parser rejects still rasterize fine.
		e.logger.Warn("ocr.pdf.text_layer_failed", "error", err)
	} else if trimmed := strings.TrimSpace(text); trimmed != "" {
		return domain.Extraction{Text: trimmed, Method: domain.ExtractionPDFText, Pages: pages}, nil
	} else {
		e.logger.Info("ocr.pdf.no_text_layer", "pages", pages)
	}

	res, ocrErr := e.ocrPDF(ctx, path)
	if ocrErr != nil {
		if cerr := interrupted(ctx, "extract pdf"); cerr != nil {
			return domain.Extraction{}, cerr
		}
		if err != nil {
			ocrErr = fmt.Errorf("%w (text layer: %v)", ocrErr, err)
		}
		return domain.Extraction{}, domain.WrapError(domain.ErrExtractionFailure, "extract pdf", ocrErr)
	}
	return res, nil
}

func (e *Extractor) ocrPDF(ctx context.Context, path string) (domain.Extraction, error) {
	dir, cleanup, err := e.mkdirTemp("pdf-ocr-*")
	if err != nil {
		return domain.Extraction{}, err
	}
	defer cleanup()

	prefix := filepath.Join(dir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", strconv.Itoa(e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		msg := strings.TrimSpace(string(errb))
		if msg != "" {
			return domain.Extraction{}, fmt.Errorf("rasterize pdf: %w: %s", err, truncate(msg, 512))
		}
		return domain.Extraction{}, fmt.Errorf("rasterize pdf: %w", err)
	}

	pages, err := renderedPages(prefix)
	if err != nil {
		return domain.Extraction{}, err
	}
	if e.cfg.MaxPages > 0 && len(pages) > e.cfg.MaxPages {
		e.logger.Warn("ocr.pdf.page_limit", "pages", len(pages), "max_pages", e.cfg.MaxPages)
		pages = pages[:e.cfg.MaxPages]
	}

	var b strings.Builder
	var failures []error
	for i, img := range pages {
		if err := ctx.Err(); err != nil {
			return domain.Extraction{}, err
		}
		text, err := e.tesseract(ctx, img)
		if err != nil {
			e.logger.Warn("ocr.pdf.page_failed", "page", i+1, "error", err)
			failures = append(failures, fmt.Errorf("page %d: %w", i+1, err))
		}
		b.WriteString(text)
		fmt.Fprintf(&b, "\n--- End of Page %d ---\n", i+1)
	}
	if len(failures) == len(pages) {
		return domain.Extraction{}, fmt.Errorf("ocr pdf pages: %w", errors.Join(failures...))
	}

	return domain.Extraction{
		Text:   strings.TrimSpace(b.String()),
		Method: domain.ExtractionPDFOCR,
		Pages:  len(pages),
	}, nil
}

// renderedPages lists pdftoppm output in page order. pdftoppm zero-pads
// page numbers, but sort numerically to be safe.
func renderedPages(prefix string) ([]string, error) {
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, fmt.Errorf("list rendered pages: %w", err)
	}
	if len(matches) == 0 {
		return nil, errors.New("pdftoppm produced no images")
	}
	pageNumber := func(p string) int {
		base := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(p), filepath.Base(prefix)+"-"), ".png")
		n, _ := strconv.Atoi(base)
		return n
	}
	sort.Slice(matches, func(i, j int) bool { return pageNumber(matches[i]) < pageNumber(matches[j]) })
	return matches, nil
}

func readPDFTextLayer(path string) (text string, pages int, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages = r.NumPage()
	plain, err := r.GetPlainText()
	if err != nil {
		return "", pages, fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", pages, fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), pages, nil
}
