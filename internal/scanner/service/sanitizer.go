package service

import (
	"regexp"
	"strings"

	scannerDomain "github.com/anonymort/whistle/internal/scanner/domain"
)

const maxFilenameLength = 255

var safeFilename = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 ._()\-]*$`)

// SanitizeFilename checks filename against the allowed character set. A name that does not
// already conform is rejected rather than rewritten.
func SanitizeFilename(filename string) scannerDomain.ScanResult {
	switch {
	case filename == "",
		len(filename) > maxFilenameLength,
		!safeFilename.MatchString(filename),
		strings.HasSuffix(filename, "."),
		strings.HasSuffix(filename, " "):
		return scannerDomain.Reject(scannerDomain.StageSanitizer, scannerDomain.ReasonInvalidFilename, "")
	}
	return scannerDomain.Clean(scannerDomain.StageSanitizer)
}
