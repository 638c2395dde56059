package model

import "encoding/json"

// CanonicalRequest asks for the canonical form of a schema document.
type CanonicalRequest struct {
	Schema                 json.RawMessage `json:"schema"`
	Algorithm              string          `json:"algorithm,omitempty"`
	FixedDecimalParameters bool            `json:"fixedDecimalParameters,omitempty"`
}

// CanonicalResponse describes one canonical form and its fingerprint.
type CanonicalResponse struct {
	Canonical   string `json:"canonical"`
	Fingerprint string `json:"fingerprint"`
	Digest      string `json:"digest"`
	CID         string `json:"cid"`
	Algorithm   string `json:"algorithm"`
}

// CheckResponse reports whether bytes already are canonical RCF.
type CheckResponse struct {
	Canonical bool        `json:"canonical"`
	Error     *CodedError `json:"error,omitempty"`
}
