package model

import (
	"encoding/hex"

	"xdao.co/rcf/cidutil"
	"xdao.co/rcf/fpstore"
	"xdao.co/rcf/rcf"
)

// CanonicalizerFor builds the canonicalizer a request asks for.
func CanonicalizerFor(req CanonicalRequest) (rcf.Canonicalizer, error) {
	alg, err := rcf.ParseAlgorithm(req.Algorithm)
	if err != nil {
		return rcf.Canonicalizer{}, MapError(err)
	}
	return rcf.Canonicalizer{Options: rcf.Options{
		Algorithm:              alg,
		FixedDecimalParameters: req.FixedDecimalParameters,
	}}, nil
}

// Canonicalize normalizes req.Schema and fingerprints the result.
func Canonicalize(req CanonicalRequest) (*CanonicalResponse, error) {
	if len(req.Schema) == 0 {
		return nil, NewError(ErrInvalidRequest, "missing schema")
	}
	c, err := CanonicalizerFor(req)
	if err != nil {
		return nil, err
	}
	b, err := c.NormalizeText(req.Schema)
	if err != nil {
		return nil, MapError(err)
	}
	return Describe(c.Options.Algorithm, string(b))
}

// Check reports whether req.Schema is byte-for-byte canonical RCF.
func Check(req CanonicalRequest) (*CheckResponse, error) {
	c, err := CanonicalizerFor(req)
	if err != nil {
		return nil, err
	}
	if _, err := c.CanonicalizeText(req.Schema); err != nil {
		return &CheckResponse{Canonical: false, Error: MapError(err)}, nil
	}
	return &CheckResponse{Canonical: true}, nil
}

// Describe fingerprints canonical text under alg.
func Describe(alg rcf.Algorithm, canonical string) (*CanonicalResponse, error) {
	if alg == 0 {
		alg = rcf.SHA256
	}
	id, err := rcf.CID(alg, canonical)
	if err != nil {
		return nil, MapError(err)
	}
	fp, _, err := cidutil.CIDFingerprint(id)
	if err != nil {
		return nil, MapError(err)
	}
	return &CanonicalResponse{
		Canonical:   canonical,
		Fingerprint: fp.String(),
		Digest:      hex.EncodeToString(fp.FillBytes(make([]byte, cidutil.DigestSize))),
		CID:         id.String(),
		Algorithm:   alg.String(),
	}, nil
}

// FromEntry projects a stored entry.
func FromEntry(e fpstore.Entry) CanonicalResponse {
	return CanonicalResponse{
		Canonical:   e.Canonical,
		Fingerprint: e.Fingerprint.String(),
		Digest:      hex.EncodeToString(e.Fingerprint.FillBytes(make([]byte, cidutil.DigestSize))),
		CID:         e.CID.String(),
		Algorithm:   e.Algorithm.String(),
	}
}
