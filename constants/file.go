package constants

import "strings"

// FileFormat is the document family a source file belongs to.
type FileFormat string

const (
	PDF         FileFormat = "PDF"
	SPREADSHEET FileFormat = "SPREADSHEET"
	TEXT        FileFormat = "TEXT"
	UNKNOWN     FileFormat = "UNKNOWN"
)

// AllowedExtensions holds the file extensions the document normalizer accepts.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"xlsx": {},
	"xlsm": {},
	"csv":  {},
	"txt":  {},
}

// ResultSuffix is appended to a source file name when a result is written next to it.
const ResultSuffix = ".po.json"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MapExtToFormat maps a file extension (with or without the dot) to its format.
func MapExtToFormat(ext string) FileFormat {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "xlsx", "xlsm":
		return SPREADSHEET
	case "csv", "txt":
		return TEXT
	default:
		return UNKNOWN
	}
}
