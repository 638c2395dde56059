package rcf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/rcf/schema"
)

func requireRule(t *testing.T, err error, kind Kind, ruleID string) {
	t.Helper()
	require.Error(t, err)
	var e *Error
	require.True(t, errors.As(err, &e), "expected structured *rcf.Error, got %T", err)
	assert.Equal(t, kind, e.Kind)
	assert.Equal(t, ruleID, e.RuleID)
	assert.True(t, IsKind(err, kind))
}

func TestNormalize_ErrorTaxonomy_MissingFullname(t *testing.T) {
	_, err := ToCanonicalForm(&schema.Record{Fields: []*schema.Field{}})
	requireRule(t, err, KindPrecondition, "RCF-PRE-001")

	_, err = ToCanonicalForm(&schema.Ref{})
	requireRule(t, err, KindPrecondition, "RCF-PRE-001")
}

func TestNormalize_ErrorTaxonomy_DanglingReference(t *testing.T) {
	s := &schema.Record{
		Name:   schema.Name{Name: "a"},
		Fields: []*schema.Field{{Name: "b", Type: &schema.Ref{Fullname: "b"}}},
	}
	form, err := ToCanonicalForm(s)
	requireRule(t, err, KindPrecondition, "RCF-PRE-002")
	assert.Empty(t, form, "no partial output on failure")
}

func TestNormalize_ErrorTaxonomy_NilNodes(t *testing.T) {
	_, err := ToCanonicalForm(nil)
	requireRule(t, err, KindPrecondition, "RCF-PRE-003")

	_, err = ToCanonicalForm(&schema.Array{})
	requireRule(t, err, KindPrecondition, "RCF-PRE-003")

	_, err = ToFingerprint(&schema.Record{Name: schema.Name{Name: "r"}, Fields: []*schema.Field{nil}})
	requireRule(t, err, KindPrecondition, "RCF-PRE-003")
}

func TestNormalize_ErrorTaxonomy_UnknownPrimitive(t *testing.T) {
	_, err := ToCanonicalForm(&schema.Primitive{Kind: "decimal128"})
	requireRule(t, err, KindPrecondition, "RCF-PRE-004")
}

func TestNormalize_ErrorTaxonomy_UnsupportedDefault(t *testing.T) {
	s := &schema.Record{
		Name:   schema.Name{Name: "r"},
		Fields: []*schema.Field{{Name: "f", Type: &schema.Primitive{Kind: schema.KindString}, Default: schema.ValueDefault(struct{}{})}},
	}
	_, err := ToCanonicalForm(s)
	requireRule(t, err, KindPrecondition, "RCF-PRE-006")
}

func TestCanonicalizeText_ErrorTaxonomy(t *testing.T) {
	_, err := CanonicalizeText([]byte{0xff, 0xfe})
	requireRule(t, err, KindCanonical, "RCF-CANON-002")

	_, err = CanonicalizeText([]byte(`{"type": "int"}`))
	requireRule(t, err, KindCanonical, "RCF-CANON-001")

	_, err = CanonicalizeText([]byte(`{"type": "nope"}`))
	requireRule(t, err, KindParse, "RCF-PARSE-001")
	var pe *schema.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "SCHEMA-PARSE-004", pe.RuleID)
}

func TestNormalize_ErrorTaxonomy_InvalidUTF8(t *testing.T) {
	str := &schema.Primitive{Kind: schema.KindString}
	cases := map[string]schema.Schema{
		"record name": &schema.Record{Name: schema.Name{Name: "r\xff"}, Fields: []*schema.Field{}},
		"enum symbol": &schema.Enum{Name: schema.Name{Name: "e"}, Symbols: []string{"A", "B\xfe"}},
		"default": &schema.Record{Name: schema.Name{Name: "r"}, Fields: []*schema.Field{
			{Name: "f", Type: str, Default: schema.ValueDefault("x\xff")},
		}},
		"default key": &schema.Record{Name: schema.Name{Name: "r"}, Fields: []*schema.Field{
			{Name: "m", Type: &schema.Map{Values: str}, Default: schema.ValueDefault(map[string]any{"k\xff": "v"})},
		}},
	}
	for name, s := range cases {
		form, err := ToCanonicalForm(s)
		requireRule(t, err, KindPrecondition, "RCF-PRE-007")
		assert.Empty(t, form, name)
	}

	// Distinct invalid bytes must not collapse onto one fingerprint.
	_, err := ToFingerprint(&schema.Enum{Name: schema.Name{Name: "e"}, Symbols: []string{"\xfe"}})
	requireRule(t, err, KindPrecondition, "RCF-PRE-007")
}
