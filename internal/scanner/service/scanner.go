package service

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	scannerDomain "github.com/anonymort/whistle/internal/scanner/domain"
)

// Scanner sanitizes the filename, checks the declared MIME type against the allow-list and then
// runs its stages in order. The first rejecting stage ends the scan.
type Scanner struct {
	stages []Stage
	now    func() time.Time
}

// NewScanner creates a scanner running stages in the given order.
func NewScanner(stages ...Stage) *Scanner {
	return &Scanner{stages: stages, now: time.Now}
}

// NewDefaultScanner creates the signature, heuristic, behavior chain.
func NewDefaultScanner(signatures map[string]string, maxBytes int64, entropyThreshold float64) *Scanner {
	return NewScanner(
		NewSignatureStage(signatures),
		NewHeuristicStage(),
		NewBehaviorStage(maxBytes, entropyThreshold),
	)
}

// Scan returns the final verdict, and a *ScanError when the file is rejected. An empty
// declaredMIME skips the declared type check; the sniffed type is still enforced.
func (s *Scanner) Scan(filename, declaredMIME string, data []byte) (scannerDomain.ScanResult, error) {
	sum := sha256.Sum256(data)
	fileHash := hex.EncodeToString(sum[:])

	finish := func(result scannerDomain.ScanResult) (scannerDomain.ScanResult, error) {
		result.FileHash = fileHash
		result.ScanDate = s.now().UTC()
		if !result.IsClean {
			return result, &scannerDomain.ScanError{Result: result}
		}
		return result, nil
	}

	if result := SanitizeFilename(filename); !result.IsClean {
		return finish(result)
	}

	entry, ok := lookupType(filename)
	if !ok || (declaredMIME != "" && !entry.acceptsMIME(declaredMIME)) {
		return finish(scannerDomain.Reject(scannerDomain.StageHeuristic, scannerDomain.ReasonDisallowedType, ""))
	}

	last := scannerDomain.Clean(scannerDomain.StageSanitizer)
	for _, stage := range s.stages {
		last = stage.Scan(data, filename)
		if !last.IsClean {
			return finish(last)
		}
	}
	return finish(last)
}

// CanonicalMIME returns the MIME type recorded for filename, preferring the declared type when
// it is allowed.
func CanonicalMIME(filename, declaredMIME string) string {
	entry, ok := lookupType(filename)
	if !ok {
		return "application/octet-stream"
	}
	if declaredMIME != "" && entry.acceptsMIME(declaredMIME) {
		return declaredMIME
	}
	return entry.mimeTypes[0]
}
