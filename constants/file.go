package constants

import "strings"

const (
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeCSV  = "text/csv"
)

// AllowedExtensions holds the spreadsheet extensions picked up by directory ingestion.
var AllowedExtensions = map[string]struct{}{
	"xlsx": {},
	"xlsm": {},
	"csv":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MimeForExt maps a normalized extension to the MIME hint used by the tabular codecs.
func MimeForExt(ext string) string {
	switch NormalizeExt(ext) {
	case "xlsx", "xlsm":
		return MimeXLSX
	case "csv":
		return MimeCSV
	default:
		return ""
	}
}
