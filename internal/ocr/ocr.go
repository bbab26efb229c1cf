package ocr

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-tracker/constants"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300
	MaxPages      int // 0 = no limit

	Enhance bool // preprocess rendered pages before OCR

	// DisableSidecar skips writing <stem>_ocr.txt next to the source.
	DisableSidecar bool
}

type ExtractionResult struct {
	Text     string
	Pages    int
	Method   string // constants.MethodPDFText | MethodPDFOCR | MethodNone
	Language string
	Duration time.Duration
	Warnings []string
	Sidecar  string // path of the written OCR sidecar, if any
}

// Empty reports whether no usable text was produced.
func (r ExtractionResult) Empty() bool { return strings.TrimSpace(r.Text) == "" }

type Extractor struct {
	cfg    Config
	runner Runner
	text   TextLayer
	logger *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the external command runner.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithTextLayer replaces the embedded-text reader.
func WithTextLayer(t TextLayer) Option {
	return func(e *Extractor) {
		if t != nil {
			e.text = t
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
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
	e := &Extractor{cfg: cfg, runner: ExecRunner{Logger: logger}, text: PDFTextLayer{}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract returns the document text, trying the embedded text layer first and
// falling back to rasterize + OCR when that yields only whitespace. It never
// fails: when both attempts come up empty the result is empty with warnings.
// OCR text is also written to <stem>_ocr.txt beside path.
func (e *Extractor) Extract(ctx context.Context, path string, content []byte) ExtractionResult {
	start := time.Now()
	res := ExtractionResult{Method: constants.MethodNone}

	text, pages, err := e.text.Text(content)
	if err != nil {
		e.logger.Debug("text layer unreadable", "path", path, "error", err)
		res.Warnings = append(res.Warnings, "text layer: "+err.Error())
	}
	res.Pages = pages
	if strings.TrimSpace(text) != "" {
		res.Text = text
		res.Method = constants.MethodPDFText
		e.logger.Debug("text layer extracted", "path", path, "pages", pages, "bytes", len(text))
		return e.finish(res, start)
	}

	e.logger.Debug("text layer empty, falling back to ocr", "path", path)
	text, pages, warns, err := e.pdfToOCR(ctx, content)
	res.Warnings = append(res.Warnings, warns...)
	if err != nil {
		e.logger.Warn("ocr failed", "path", path, "error", err)
		res.Warnings = append(res.Warnings, "ocr: "+err.Error())
		return e.finish(res, start)
	}
	text = Normalize(text)
	if strings.TrimSpace(text) == "" {
		return e.finish(res, start)
	}
	res.Text = text
	res.Pages = pages
	res.Method = constants.MethodPDFOCR
	res.Language = e.cfg.TesseractLang

	if !e.cfg.DisableSidecar {
		if sidecar, err := writeSidecar(path, text); err != nil {
			e.logger.Warn("failed to write ocr sidecar", "path", path, "error", err)
			res.Warnings = append(res.Warnings, "sidecar: "+err.Error())
		} else {
			res.Sidecar = sidecar
		}
	}
	return e.finish(res, start)
}

func (e *Extractor) finish(res ExtractionResult, start time.Time) ExtractionResult {
	res.Duration = time.Since(start)
	return res
}

// SidecarPath returns where OCR text for path is persisted.
func SidecarPath(path string) string {
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	return stem + constants.OCRSidecarSuffix
}

func writeSidecar(path, text string) (string, error) {
	out := SidecarPath(path)
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		return "", err
	}
	return out, nil
}
