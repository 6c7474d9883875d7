package domain

import "time"

// Envelope is the immutable output of sealing. It is also the JSON form reporters submit and
// the form stored for each submission, so it carries its own tags.
type Envelope struct {
	AlgorithmID  string    `json:"algorithmId"`
	Ciphertext   string    `json:"ciphertext"`             // base64 (standard encoding)
	IntegrityTag string    `json:"integrityTag,omitempty"` // base64 BLAKE3-256 of the raw ciphertext
	CreatedAt    time.Time `json:"createdAt"`
}

// FileRecord is the structured record sealed for file payloads so that opening yields the
// exact bytes plus the declared metadata.
type FileRecord struct {
	Filename string `cbor:"1,keyasint"`
	MIMEType string `cbor:"2,keyasint"`
	Size     int64  `cbor:"3,keyasint"`
	Data     []byte `cbor:"4,keyasint"`
}
