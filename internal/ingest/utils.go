package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/invoice-tracker/constants"
)

// Matches reports whether path is a visible file with the document extension.
func Matches(path, ext string) bool {
	return !IsHidden(path) && constants.HasExt(path, ext)
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}
