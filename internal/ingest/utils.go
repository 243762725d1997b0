package ingest

import (
	"path/filepath"
	"strings"

	"github.com/stockwatch/stockwatch/constants"
)

// AllowedExt checks if a file extension is in the allowed set (xlsx/xlsm/csv).
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.'). Office lock files ("~$") count as hidden.
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$")
}

// FileGroupFor names the group a watched or imported file lands in: its base name without extension.
func FileGroupFor(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
