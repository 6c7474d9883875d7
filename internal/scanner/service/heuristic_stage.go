package service

import (
	"bytes"

	"github.com/gabriel-vasile/mimetype"

	scannerDomain "github.com/anonymort/whistle/internal/scanner/domain"
)

const scriptWindow = 1024

type magicSignature struct {
	prefix []byte
	name   string
}

// executableMagic lists executable and container headers rejected whatever the extension.
// Containers are included because they can carry executables past the allow-list.
var executableMagic = []magicSignature{
	{[]byte("MZ"), "PE executable"},
	{[]byte{0x7f, 'E', 'L', 'F'}, "ELF executable"},
	{[]byte{0xfe, 0xed, 0xfa, 0xce}, "Mach-O executable"},
	{[]byte{0xfe, 0xed, 0xfa, 0xcf}, "Mach-O executable"},
	{[]byte{0xce, 0xfa, 0xed, 0xfe}, "Mach-O executable"},
	{[]byte{0xcf, 0xfa, 0xed, 0xfe}, "Mach-O executable"},
	{[]byte{0xca, 0xfe, 0xba, 0xbe}, "Mach-O universal binary"},
	{[]byte("#!"), "script with interpreter"},
	{[]byte{0x00, 'a', 's', 'm'}, "WebAssembly module"},
	{[]byte("PK\x03\x04"), "ZIP container"},
	{[]byte("PK\x05\x06"), "ZIP container"},
	{[]byte("Rar!\x1a\x07"), "RAR archive"},
	{[]byte{'7', 'z', 0xbc, 0xaf, 0x27, 0x1c}, "7z archive"},
	{[]byte{0x1f, 0x8b}, "gzip stream"},
	{[]byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}, "OLE compound document"},
	{[]byte("MSCF"), "CAB archive"},
}

// scriptMarkers are matched case-insensitively in the first KiB.
var scriptMarkers = [][]byte{
	[]byte("<script"),
	[]byte("javascript:"),
	[]byte("vbscript:"),
	[]byte("<?php"),
	[]byte("<%"),
	[]byte("<iframe"),
	[]byte("onerror="),
	[]byte("onload="),
	[]byte("eval("),
}

// HeuristicStage enforces the type allow-list, rejects executable headers and script markers
// and requires the sniffed content type to agree with the extension.
type HeuristicStage struct{}

// NewHeuristicStage creates the heuristic stage.
func NewHeuristicStage() *HeuristicStage {
	return &HeuristicStage{}
}

func (s *HeuristicStage) Name() string {
	return scannerDomain.StageHeuristic
}

func (s *HeuristicStage) Scan(data []byte, filename string) scannerDomain.ScanResult {
	entry, ok := lookupType(filename)
	if !ok {
		return scannerDomain.Reject(s.Name(), scannerDomain.ReasonDisallowedType, "")
	}
	if len(data) == 0 {
		// Nothing to sniff; emptiness is a behavior rule.
		return scannerDomain.Clean(s.Name())
	}

	for _, magic := range executableMagic {
		if bytes.HasPrefix(data, magic.prefix) {
			return scannerDomain.Reject(s.Name(), scannerDomain.ReasonExecutableSignature, magic.name)
		}
	}

	if !sniffedTypeAllowed(data, entry) {
		return scannerDomain.Reject(s.Name(), scannerDomain.ReasonTypeMismatch, "")
	}

	if !entry.markup && containsScriptMarker(data) {
		return scannerDomain.Reject(s.Name(), scannerDomain.ReasonScriptContent, "")
	}

	return scannerDomain.Clean(s.Name())
}

// sniffedTypeAllowed walks from the detected type up through its parents, so plain text that
// happens to look like CSV still counts as text.
func sniffedTypeAllowed(data []byte, entry fileType) bool {
	for detected := mimetype.Detect(data); detected != nil; detected = detected.Parent() {
		for _, allowed := range entry.mimeTypes {
			if detected.Is(allowed) {
				return true
			}
		}
	}
	return false
}

func containsScriptMarker(data []byte) bool {
	window := data
	if len(window) > scriptWindow {
		window = window[:scriptWindow]
	}
	lowered := bytes.ToLower(window)
	for _, marker := range scriptMarkers {
		if bytes.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
