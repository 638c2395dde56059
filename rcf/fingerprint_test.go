package rcf

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/rcf/cidutil"
	"xdao.co/rcf/schema"
)

func mustBig(t *testing.T, dec string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(dec, 10)
	require.True(t, ok, "bad decimal %q", dec)
	return v
}

const recordDoc = `{
	"type": "record",
	"name": "test",
	"namespace": "random",
	"doc": "some record",
	"fields": [
		{ "name": "height", "type": "int", "default": 1, "doc": "the height" },
		{ "name": "width", "type": "int", "doc": "the width" }
	]
}`

func TestToFingerprint_Record(t *testing.T) {
	fp, err := ToFingerprint(mustParse(t, recordDoc))
	require.NoError(t, err)
	assert.Equal(t, 0, fp.Cmp(mustBig(t, "76215121346273769907599941410596079616301682207627952515775291450295463500031")))
}

func TestToFingerprint_Primitive(t *testing.T) {
	fp, err := ToFingerprint(&schema.Primitive{Kind: schema.KindInt})
	require.NoError(t, err)
	assert.Equal(t, 0, fp.Cmp(mustBig(t, "28572620203319713300323544804233350633246234624932075150020181448463213378117")))

	hex, err := DigestHex(SHA256, `"int"`)
	require.NoError(t, err)
	assert.Equal(t, "3f2b87a9fe7cc9b13835598c3981cd45e3e355309e5090aa0933d7becb6fba45", hex)
}

func TestFingerprint_IsDigestOfCanonicalText(t *testing.T) {
	s := mustParse(t, `{"type": "record", "name": "item", "fields": [{ "name": "next", "type": "item" }]}`)
	form := mustForm(t, s)
	fp, err := ToFingerprint(s)
	require.NoError(t, err)
	assert.Equal(t, 0, fp.Cmp(Fingerprint(form)))
	assert.Equal(t, 0, fp.Cmp(mustBig(t, "84153879143541961272933145683215696648590550559085308655881045787837842613429")))
}

func TestFingerprintWith_SHA3(t *testing.T) {
	fp, err := FingerprintWith(SHA3256, `"int"`)
	require.NoError(t, err)
	assert.Equal(t, 0, fp.Cmp(mustBig(t, "21973892857056215028545205695537864126255813176862964207631751188706516732644")))

	c := Canonicalizer{Options: Options{Algorithm: SHA3256}}
	viaSchema, err := c.Fingerprint(&schema.Primitive{Kind: schema.KindInt})
	require.NoError(t, err)
	assert.Equal(t, 0, fp.Cmp(viaSchema))
}

func TestFingerprintWith_BLAKE3DiffersFromSHA256(t *testing.T) {
	b3, err := FingerprintWith(BLAKE3, `"int"`)
	require.NoError(t, err)
	assert.NotEqual(t, 0, b3.Cmp(Fingerprint(`"int"`)))
	assert.LessOrEqual(t, b3.BitLen(), 256)
}

func TestFingerprint_EquivalenceFollowsCanonicalForm(t *testing.T) {
	docs := []string{
		`{"type":"record","name":"r","namespace":"n","aliases":["b","a"],"fields":[{"name":"f","type":"int"}]}`,
		`{"namespace":"n","name":"r","type":"record","doc":"same thing","aliases":["a","b"],"fields":[{"type":"int","name":"f","doc":"x"}]}`,
		`{"type":"record","name":"n.r","aliases":["n.a","n.b"],"fields":[{"name":"f","type":{"type":"int"}}]}`,
		`{"type":"record","name":"r","namespace":"n","fields":[{"name":"f","type":"int"}]}`,
		`{"type":"record","name":"r","namespace":"n","aliases":["a","b"],"fields":[{"name":"f","type":"long"}]}`,
	}
	forms := make([]string, len(docs))
	fps := make([]*big.Int, len(docs))
	for i, d := range docs {
		s := mustParse(t, d)
		forms[i] = mustForm(t, s)
		fp, err := ToFingerprint(s)
		require.NoError(t, err)
		fps[i] = fp
	}
	for i := range docs {
		for j := range docs {
			sameForm := forms[i] == forms[j]
			sameFP := fps[i].Cmp(fps[j]) == 0
			assert.Equal(t, sameForm, sameFP, "docs %d and %d", i, j)
		}
	}
	assert.Equal(t, forms[0], forms[1])
	assert.Equal(t, forms[0], forms[2])
	assert.NotEqual(t, forms[0], forms[3])
	assert.NotEqual(t, forms[0], forms[4])
}

func TestCID_CarriesFingerprint(t *testing.T) {
	form := mustForm(t, mustParse(t, recordDoc))
	c, err := CID(SHA256, form)
	require.NoError(t, err)

	fp, code, err := cidutil.CIDFingerprint(c)
	require.NoError(t, err)
	assert.Equal(t, uint64(SHA256), code)
	assert.Equal(t, 0, fp.Cmp(Fingerprint(form)))
	want, err := cidutil.CIDv1Raw([]byte(form), uint64(SHA256))
	require.NoError(t, err)
	assert.Equal(t, want, c)
}

func TestParseAlgorithm(t *testing.T) {
	for name, want := range map[string]Algorithm{"": SHA256, "sha2-256": SHA256, "sha3-256": SHA3256, "blake3": BLAKE3} {
		got, err := ParseAlgorithm(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}
	_, err := ParseAlgorithm("sha1")
	require.Error(t, err)
	assert.Equal(t, "RCF-DIGEST-001", RuleID(err))
	assert.Equal(t, "sha2-256", SHA256.String())
}
