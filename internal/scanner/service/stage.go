// Package service implements the file integrity scanner: filename sanitization followed by an
// ordered chain of independent stages, the first rejection winning.
package service

import (
	"path/filepath"
	"strings"

	scannerDomain "github.com/anonymort/whistle/internal/scanner/domain"
)

// Stage is one link in the scan chain.
type Stage interface {
	Name() string
	Scan(data []byte, filename string) scannerDomain.ScanResult
}

// fileType is an allow-listed upload type.
type fileType struct {
	mimeTypes []string // acceptable declared or sniffed types, canonical first
	markup    bool     // may legitimately contain script-like markup
	textual   bool     // uncompressed; entropy analysis applies
	trailer   []byte   // end of file marker binary formats must carry near their tail
}

// allowedTypes is the upload allow-list keyed by lower-case extension. Anything else is rejected.
var allowedTypes = map[string]fileType{
	".txt":  {mimeTypes: []string{"text/plain"}, textual: true},
	".md":   {mimeTypes: []string{"text/markdown", "text/plain"}, textual: true},
	".csv":  {mimeTypes: []string{"text/csv", "text/plain"}, textual: true},
	".pdf":  {mimeTypes: []string{"application/pdf"}, trailer: []byte("%%EOF")},
	".png":  {mimeTypes: []string{"image/png"}, trailer: []byte("IEND")},
	".jpg":  {mimeTypes: []string{"image/jpeg"}, trailer: []byte{0xff, 0xd9}},
	".jpeg": {mimeTypes: []string{"image/jpeg"}, trailer: []byte{0xff, 0xd9}},
	".gif":  {mimeTypes: []string{"image/gif"}},
	".html": {mimeTypes: []string{"text/html"}, markup: true, textual: true},
	".xml":  {mimeTypes: []string{"application/xml", "text/xml"}, markup: true, textual: true},
}

// lookupType returns the allow-list entry for filename's extension.
func lookupType(filename string) (fileType, bool) {
	entry, ok := allowedTypes[strings.ToLower(filepath.Ext(filename))]
	return entry, ok
}

// acceptsMIME reports whether mimeType (parameters ignored) is one of the entry's types.
func (f fileType) acceptsMIME(mimeType string) bool {
	base, _, _ := strings.Cut(mimeType, ";")
	base = strings.ToLower(strings.TrimSpace(base))
	for _, allowed := range f.mimeTypes {
		if base == allowed {
			return true
		}
	}
	return false
}
