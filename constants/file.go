package constants

import "strings"

// DefaultDocumentExt is the extension the watcher reacts to when none is configured.
const DefaultDocumentExt = "pdf"

// OCRSidecarSuffix is appended to a document's stem when OCR text is persisted next to it.
const OCRSidecarSuffix = "_ocr.txt"

// Extraction methods reported by the text extractor.
const (
	MethodPDFText = "pdf-text"
	MethodPDFOCR  = "pdf-ocr"
	MethodNone    = "none"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// HasExt reports whether path ends in ext, ignoring case and a leading dot on ext.
func HasExt(path, ext string) bool {
	ext = NormalizeExt(ext)
	if ext == "" {
		return false
	}
	i := strings.LastIndexByte(path, '.')
	if i < 0 || strings.ContainsAny(path[i:], `/\`) {
		return false
	}
	return NormalizeExt(path[i:]) == ext
}
