package service

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	scannerDomain "github.com/anonymort/whistle/internal/scanner/domain"
)

// eicarSHA256 is the digest of the EICAR anti-virus test file.
const eicarSHA256 = "275a021bbfb6489e54d471899f7db9d1663fc695ec2fe2a2c4538aabf651fd0f"

// SignatureStage rejects files whose SHA-256 is in a known-bad set.
type SignatureStage struct {
	signatures map[string]string
}

// NewSignatureStage creates the stage with the built-in signatures plus extra.
// Keys of extra are lower-case hex SHA-256 digests, values threat names.
func NewSignatureStage(extra map[string]string) *SignatureStage {
	signatures := map[string]string{eicarSHA256: "EICAR-Test-File"}
	for hash, name := range extra {
		signatures[strings.ToLower(hash)] = name
	}
	return &SignatureStage{signatures: signatures}
}

func (s *SignatureStage) Name() string {
	return scannerDomain.StageSignature
}

func (s *SignatureStage) Scan(data []byte, filename string) scannerDomain.ScanResult {
	sum := sha256.Sum256(data)
	if threat, ok := s.signatures[hex.EncodeToString(sum[:])]; ok {
		return scannerDomain.Reject(s.Name(), scannerDomain.ReasonKnownMalware, threat)
	}
	return scannerDomain.Clean(s.Name())
}

// Len returns the number of loaded signatures.
func (s *SignatureStage) Len() int {
	return len(s.signatures)
}

// ParseSignatures reads "sha256 threatName" lines. Blank lines and lines starting with # are
// skipped.
func ParseSignatures(r io.Reader) (map[string]string, error) {
	signatures := make(map[string]string)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		hash, name, _ := strings.Cut(text, " ")
		hash = strings.ToLower(hash)
		if decoded, err := hex.DecodeString(hash); err != nil || len(decoded) != sha256.Size {
			return nil, fmt.Errorf("line %d: invalid sha256 %q", line, hash)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = "Known-Bad-" + hash[:12]
		}
		signatures[hash] = name
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read signatures: %w", err)
	}
	return signatures, nil
}

// LoadSignatureFile parses the signature file at path. An empty path yields no signatures.
func LoadSignatureFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	file, err := os.Open(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to open signature file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()
	return ParseSignatures(file)
}
