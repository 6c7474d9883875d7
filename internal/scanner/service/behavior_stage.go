package service

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"

	scannerDomain "github.com/anonymort/whistle/internal/scanner/domain"
)

// minEntropySample is the smallest payload entropy is measured on; shorter inputs give
// unreliable estimates.
const minEntropySample = 512

// trailerWindow is how far from the end a format trailer may sit. Readers tolerate trailing
// padding up to about a KiB after %%EOF.
const trailerWindow = 1024

var reservedNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true, "com5": true,
	"com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true, "lpt5": true,
	"lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

// BehaviorStage rejects empty and oversized payloads, reserved or traversal filenames and
// uncompressed types whose byte distribution looks packed or encrypted. Compressed types skip
// entropy but must end with their format trailer.
type BehaviorStage struct {
	maxBytes         int64
	entropyThreshold float64
}

// NewBehaviorStage creates the behavior stage.
func NewBehaviorStage(maxBytes int64, entropyThreshold float64) *BehaviorStage {
	return &BehaviorStage{maxBytes: maxBytes, entropyThreshold: entropyThreshold}
}

func (s *BehaviorStage) Name() string {
	return scannerDomain.StageBehavior
}

func (s *BehaviorStage) Scan(data []byte, filename string) scannerDomain.ScanResult {
	if len(data) == 0 {
		return scannerDomain.Reject(s.Name(), scannerDomain.ReasonEmptyFile, "")
	}
	if int64(len(data)) > s.maxBytes {
		return scannerDomain.Reject(s.Name(), scannerDomain.ReasonFileTooLarge, "")
	}
	if isTraversal(filename) {
		return scannerDomain.Reject(s.Name(), scannerDomain.ReasonInvalidFilename, "")
	}
	if isReserved(filename) {
		return scannerDomain.Reject(s.Name(), scannerDomain.ReasonReservedFilename, "")
	}

	entry, ok := lookupType(filename)
	if ok && entry.textual && len(data) >= minEntropySample {
		if ShannonEntropy(data) > s.entropyThreshold {
			return scannerDomain.Reject(s.Name(), scannerDomain.ReasonHighEntropy, "")
		}
	}
	if ok && len(entry.trailer) > 0 && !hasTrailer(data, entry.trailer) {
		return scannerDomain.Reject(s.Name(), scannerDomain.ReasonMalformedStructure, "")
	}

	return scannerDomain.Clean(s.Name())
}

func hasTrailer(data, trailer []byte) bool {
	tail := data
	if len(tail) > trailerWindow {
		tail = tail[len(tail)-trailerWindow:]
	}
	return bytes.Contains(tail, trailer)
}

func isTraversal(filename string) bool {
	return strings.Contains(filename, "..") ||
		strings.ContainsAny(filename, `/\:`) ||
		strings.HasPrefix(filename, ".")
}

func isReserved(filename string) bool {
	base := strings.ToLower(filename)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	base, _, _ = strings.Cut(base, ".")
	return reservedNames[strings.TrimSpace(base)]
}

// ShannonEntropy returns the entropy of data's byte distribution in bits per byte (0 to 8).
func ShannonEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	var counts [256]int
	for _, b := range data {
		counts[b]++
	}

	total := float64(len(data))
	var entropy float64
	for _, count := range counts {
		if count == 0 {
			continue
		}
		p := float64(count) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}
