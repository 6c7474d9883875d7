// Package domain defines the scan verdicts produced by the file integrity scanner.
package domain

import (
	"fmt"
	"time"

	apperrors "github.com/anonymort/whistle/internal/errors"
)

// Reason codes returned to clients. They name the rule that fired without describing how to
// get around it.
const (
	ReasonInvalidFilename     = "INVALID_FILENAME"
	ReasonReservedFilename    = "RESERVED_FILENAME"
	ReasonEmptyFile           = "EMPTY_FILE"
	ReasonFileTooLarge        = "FILE_TOO_LARGE"
	ReasonDisallowedType      = "DISALLOWED_TYPE"
	ReasonTypeMismatch        = "TYPE_MISMATCH"
	ReasonExecutableSignature = "EXECUTABLE_SIGNATURE"
	ReasonScriptContent       = "SCRIPT_CONTENT"
	ReasonHighEntropy         = "HIGH_ENTROPY"
	ReasonMalformedStructure  = "MALFORMED_STRUCTURE"
	ReasonKnownMalware        = "KNOWN_MALWARE"
)

// Stage names.
const (
	StageSanitizer = "sanitizer"
	StageSignature = "signature"
	StageHeuristic = "heuristic"
	StageBehavior  = "behavior"
)

// ScanResult is the verdict of one stage, or of the whole chain. It is never persisted.
type ScanResult struct {
	FileHash    string
	IsClean     bool
	ThreatName  string
	ReasonCode  string
	EngineStage string
	ScanDate    time.Time
}

// Clean returns a passing result for stage.
func Clean(stage string) ScanResult {
	return ScanResult{IsClean: true, EngineStage: stage}
}

// Reject returns a failing result for stage.
func Reject(stage, reasonCode, threatName string) ScanResult {
	return ScanResult{EngineStage: stage, ReasonCode: reasonCode, ThreatName: threatName}
}

// ScanError is returned when a file is rejected. It unwraps to errors.ErrScanRejected and
// exposes the reason code for the HTTP layer.
type ScanError struct {
	Result ScanResult
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("file rejected by %s stage: %s %s", e.Result.EngineStage, e.Result.ReasonCode, e.Result.ThreatName)
}

// ReasonCode returns the client visible reason.
func (e *ScanError) ReasonCode() string {
	return e.Result.ReasonCode
}

func (e *ScanError) Unwrap() error {
	return apperrors.ErrScanRejected
}
