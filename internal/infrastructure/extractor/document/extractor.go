// Package document recovers plain text from uploaded medical reports:
// the PDF text layer when present, Tesseract OCR otherwise.
package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; default "pdftoppm"
	Tesseract string // binary name or absolute path; default "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300
	MaxPages      int // 0 = no limit

	// AllowEmptyText passes blank OCR output downstream instead of failing.
	AllowEmptyText bool
	TempDir        string
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger

	readTextLayer func(path string) (text string, pages int, err error)
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{
		cfg:           cfg,
		runner:        execRunner{logger: logger},
		logger:        logger,
		readTextLayer: readPDFTextLayer,
	}
}

// WithRunner replaces the command runner, mainly for tests.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// Extract picks a strategy based on the file extension.
func (e *Extractor) Extract(ctx context.Context, path string) (domain.Extraction, error) {
	start := time.Now()
	kind, ok := domain.DocumentKindFromName(path)
	if !ok {
		ext := strings.ToLower(filepath.Ext(path))
		e.logger.Warn("ocr.unsupported_extension", "extension", ext)
		return domain.Extraction{}, domain.WrapError(domain.ErrUnsupportedFormat, "extract text", fmt.Errorf("unsupported file type %q", ext))
	}

	var (
		res domain.Extraction
		err error
	)
	switch kind {
	case domain.DocumentPDF:
		res, err = e.extractPDF(ctx, path)
	default:
		res, err = e.extractImage(ctx, path)
	}
	if err != nil {
		e.logger.Warn("ocr.extract.failed", "kind", string(kind), "error", err)
		return domain.Extraction{}, err
	}

	if strings.TrimSpace(stripPageMarkers(res.Text)) == "" {
		if !e.cfg.AllowEmptyText {
			return domain.Extraction{}, domain.WrapError(domain.ErrExtractionFailure, "extract text",
				fmt.Errorf("no text could be extracted from %s", filepath.Base(path)))
		}
		e.logger.Warn("ocr.extract.empty", "kind", string(kind), "method", res.Method)
	}

	e.logger.Info("ocr.extract.done",
		"kind", string(kind),
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) tesseract(ctx context.Context, imagePath string) (string, error) {
	// tesseract <file> stdout -l <lang>
	args := []string{imagePath, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		msg := strings.TrimSpace(string(errb))
		if msg == "" {
			return "", fmt.Errorf("tesseract: %w", err)
		}
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(msg, 512))
	}
	return string(out), nil
}

// interrupted reports a canceled or expired request as a temporary failure
// so it is never blamed on the document.
func interrupted(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return domain.WrapError(domain.ErrTemporary, op, err)
	}
	return nil
}

func (e *Extractor) mkdirTemp(pattern string) (string, func(), error) {
	dir, err := os.MkdirTemp(e.cfg.TempDir, pattern)
	if err != nil {
		return "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	return dir, func() {
		if err := os.RemoveAll(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
			e.logger.Warn("ocr.temp_cleanup_failed", "dir", dir, "error", err)
		}
	}, nil
}
