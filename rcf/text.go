package rcf

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"xdao.co/rcf/schema"
)

// NormalizeText parses a schema JSON document and returns its RCF bytes.
//
// Any valid schema document is accepted; formatting, doc strings, alias order
// and similar differences are normalized away.
func NormalizeText(input []byte) ([]byte, error) {
	return Canonicalizer{}.NormalizeText(input)
}

// CanonicalizeText is the strict choke point for stored or transmitted RCF
// bytes: it accepts input only if it already is canonical RCF, and returns a
// fresh copy of it.
func CanonicalizeText(input []byte) ([]byte, error) {
	return Canonicalizer{}.CanonicalizeText(input)
}

func (c Canonicalizer) NormalizeText(input []byte) ([]byte, error) {
	s, err := schema.Parse(input)
	if err != nil {
		return nil, wrapError(KindParse, "RCF-PARSE-001", "schema parse failed: "+err.Error(), err)
	}
	form, err := c.CanonicalForm(s)
	if err != nil {
		return nil, err
	}
	return []byte(form), nil
}

func (c Canonicalizer) CanonicalizeText(input []byte) ([]byte, error) {
	if !utf8.Valid(input) {
		return nil, newError(KindCanonical, "RCF-CANON-002", "RCF must be valid UTF-8")
	}
	canonical, err := c.NormalizeText(input)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(canonical, input) {
		return nil, newError(KindCanonical, "RCF-CANON-001", "non-canonical RCF")
	}
	return canonical, nil
}

// CheckRoundTrip fails with RCF-CANON-003 unless form, an RCF produced by c,
// reads back to the same bytes. A named type that declares an empty namespace
// inside a namespaced parent is written as a bare name that re-parses into the
// parent's namespace, so its form cannot later pass CanonicalizeText.
func (c Canonicalizer) CheckRoundTrip(form []byte) error {
	again, err := c.NormalizeText(form)
	if err != nil {
		return wrapError(KindCanonical, "RCF-CANON-003", "form does not round-trip: "+err.Error(), err)
	}
	if !bytes.Equal(again, form) {
		return newError(KindCanonical, "RCF-CANON-003", fmt.Sprintf("form does not round-trip: re-reads as %s", again))
	}
	return nil
}
