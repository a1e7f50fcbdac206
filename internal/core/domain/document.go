package domain

import (
	"path/filepath"
	"strings"
)

type DocumentKind string

const (
	DocumentPDF   DocumentKind = "pdf"
	DocumentImage DocumentKind = "image"
)

const (
	ExtractionPDFText  = "pdf-text"
	ExtractionPDFOCR   = "pdf-ocr"
	ExtractionImageOCR = "image-ocr"
	ExtractionInline   = "inline"
)

// Extraction is the text recovered from a document and how it was obtained.
type Extraction struct {
	Text   string `json:"text"`
	Method string `json:"method"`
	Pages  int    `json:"pages"`
}

// DocumentKindFromName maps a filename extension to a document kind.
func DocumentKindFromName(name string) (DocumentKind, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return DocumentPDF, true
	case ".png", ".jpg", ".jpeg", ".bmp", ".tiff", ".tif":
		return DocumentImage, true
	default:
		return "", false
	}
}
