// Package rcf computes the Resolution Canonical Form (RCF) of a schema and the
// fingerprint derived from it.
//
// The RCF is a single-line JSON rendering of a schema that keeps everything
// schema resolution depends on (structure, field defaults, aliases, decimal
// parameters) and drops everything else (doc strings, field order hints,
// unknown properties). Two schemas with byte-identical RCF text resolve
// identically; the fingerprint is a 256-bit digest of that text.
//
// Every operation is a pure function of its input. Each call allocates its own
// named-type registry, so the package is safe for concurrent use.
package rcf

import (
	"math/big"

	"github.com/ipfs/go-cid"

	"xdao.co/rcf/schema"
)

// Options controls canonicalization.
//
// The zero value produces fingerprints compatible with the reference RCF.
type Options struct {
	// FixedDecimalParameters emits precision and scale for fixed types carrying
	// the decimal logical type. The reference form emits only the logicalType
	// tag for fixed decimals, so enabling this changes those fingerprints.
	FixedDecimalParameters bool

	// Algorithm selects the fingerprint hash. Zero means SHA256.
	Algorithm Algorithm
}

// Canonicalizer applies Options to the RCF operations.
type Canonicalizer struct {
	Options Options
}

// Normalize converts s to its canonical attribute tree.
func (c Canonicalizer) Normalize(s schema.Schema) (Tree, error) {
	n := normalizer{opts: c.Options}
	t, err := n.normalize(s, newRegistry())
	if err != nil {
		return nil, err
	}
	if err := validText(t); err != nil {
		return nil, err
	}
	return t, nil
}

// CanonicalForm returns the serialized RCF of s.
func (c Canonicalizer) CanonicalForm(s schema.Schema) (string, error) {
	t, err := c.Normalize(s)
	if err != nil {
		return "", err
	}
	return string(Serialize(t)), nil
}

// Fingerprint returns the fingerprint of the RCF of s under Options.Algorithm.
func (c Canonicalizer) Fingerprint(s schema.Schema) (*big.Int, error) {
	text, err := c.CanonicalForm(s)
	if err != nil {
		return nil, err
	}
	return FingerprintWith(c.Options.Algorithm, text)
}

// CID returns the content identifier of the RCF of s under Options.Algorithm.
func (c Canonicalizer) CID(s schema.Schema) (cid.Cid, error) {
	text, err := c.CanonicalForm(s)
	if err != nil {
		return cid.Undef, err
	}
	return CID(c.Options.Algorithm, text)
}

// Normalize converts s to its canonical attribute tree using default options.
func Normalize(s schema.Schema) (Tree, error) {
	return Canonicalizer{}.Normalize(s)
}

// ToCanonicalForm returns the RCF text of s.
func ToCanonicalForm(s schema.Schema) (string, error) {
	return Canonicalizer{}.CanonicalForm(s)
}

// ToFingerprint returns the SHA-256 fingerprint of the RCF of s.
func ToFingerprint(s schema.Schema) (*big.Int, error) {
	return Canonicalizer{}.Fingerprint(s)
}
