package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/rcf/model"
)

const itemDoc = `{
  "type": "record",
  "name": "item",
  "doc": "a linked list",
  "fields": [{"name": "next", "type": ["null", "item"], "default": null}]
}`

const itemRCF = `{"name":"item","type":"record","fields":[{"name":"next","type":["null","item"],"default":null}]}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestCanonical_PrintsRCFWithoutNewline(t *testing.T) {
	path := writeFile(t, t.TempDir(), "item.avsc", itemDoc)
	code, out, errOut := runCLI(t, "", "canonical", path)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, itemRCF, out)
}

func TestCanonical_ReadsStdin(t *testing.T) {
	code, out, _ := runCLI(t, `{"type":"int"}`, "canonical", "-")
	require.Equal(t, 0, code)
	assert.Equal(t, `"int"`, out)
}

func TestFingerprint_Formats(t *testing.T) {
	path := writeFile(t, t.TempDir(), "int.avsc", `"int"`)

	code, out, _ := runCLI(t, "", "fingerprint", path)
	require.Equal(t, 0, code)
	assert.Equal(t, "28572620203319713300323544804233350633246234624932075150020181448463213378117\n", out)

	code, out, _ = runCLI(t, "", "fingerprint", "--format", "hex", path)
	require.Equal(t, 0, code)
	assert.Equal(t, "3f2b87a9fe7cc9b13835598c3981cd45e3e355309e5090aa0933d7becb6fba45\n", out)

	code, out, _ = runCLI(t, "", "fingerprint", "--alg", "sha3-256", path)
	require.Equal(t, 0, code)
	assert.Equal(t, "21973892857056215028545205695537864126255813176862964207631751188706516732644\n", out)

	code, out, _ = runCLI(t, "", "fingerprint", "--format", "cid", path)
	require.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(out, "b"), out)
}

func TestFingerprint_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "item.avsc", itemDoc)
	code, out, _ := runCLI(t, "", "fingerprint", "--json", path)
	require.Equal(t, 0, code)

	var resp model.CanonicalResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, itemRCF, resp.Canonical)
	assert.Equal(t, "sha2-256", resp.Algorithm)
}

func TestFingerprint_UnknownAlgorithmIsUsageError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "int.avsc", `"int"`)
	code, _, errOut := runCLI(t, "", "fingerprint", "--alg", "md5", path)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "md5")

	code, out, _ := runCLI(t, "", "fingerprint", "--json", "--alg", "md5", path)
	assert.Equal(t, 2, code)
	var ce model.CodedError
	require.NoError(t, json.Unmarshal([]byte(out), &ce))
	assert.Equal(t, model.ErrUnsupportedAlgorithm, ce.Code)
	assert.Equal(t, "RCF-DIGEST-001", ce.RuleID)
}

func TestCanonical_FixedDecimalParametersFlag(t *testing.T) {
	doc := `{"type":"fixed","name":"d","size":8,"logicalType":"decimal","precision":10,"scale":2}`

	code, out, _ := runCLI(t, doc, "canonical", "-")
	require.Equal(t, 0, code)
	assert.Equal(t, `{"name":"d","type":"fixed","size":8,"logicalType":"decimal"}`, out)

	code, out, _ = runCLI(t, doc, "canonical", "--fixed-decimal-parameters", "-")
	require.Equal(t, 0, code)
	assert.Equal(t, `{"name":"d","type":"fixed","size":8,"logicalType":"decimal","precision":10,"scale":2}`, out)

	code, out, _ = runCLI(t, out, "check", "--fixed-decimal-parameters", "-")
	assert.Equal(t, 0, code)
	assert.Equal(t, "OK\n", out)
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.rcf", itemRCF)
	bad := writeFile(t, dir, "bad.avsc", itemDoc)

	code, out, _ := runCLI(t, "", "check", good)
	assert.Equal(t, 0, code)
	assert.Equal(t, "OK\n", out)

	code, _, errOut := runCLI(t, "", "check", bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "RCF-CANON-001")

	code, out, _ = runCLI(t, "", "check", "--json", bad)
	assert.Equal(t, 1, code)
	var resp model.CheckResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Canonical)
	assert.Equal(t, model.ErrNotCanonical, resp.Error.Code)
}

func TestCanonical_ParseErrorJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.avsc", `{"type":"Missing"}`)
	code, out, _ := runCLI(t, "", "canonical", "--json", path)
	assert.Equal(t, 1, code)

	var ce model.CodedError
	require.NoError(t, json.Unmarshal([]byte(out), &ce))
	assert.Equal(t, model.ErrParse, ce.Code)
	assert.Equal(t, "RCF-PARSE-001", ce.RuleID)
}

func TestPutGet_LocalFS(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "rcf.yaml", "store:\n  backends:\n    - kind: localfs\n      dir: "+filepath.Join(dir, "cas")+"\n")
	schema := writeFile(t, dir, "item.avsc", itemDoc)

	code, out, errOut := runCLI(t, "", "--config", cfg, "put", schema)
	require.Equal(t, 0, code, errOut)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	fp, id := lines[0], lines[1]

	code, out, errOut = runCLI(t, "", "--config", cfg, "get", fp)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, itemRCF, out)

	code, out, _ = runCLI(t, "", "--config", cfg, "get", id)
	require.Equal(t, 0, code)
	assert.Equal(t, itemRCF, out)

	code, _, errOut = runCLI(t, "", "--config", cfg, "get", "12345")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not found")
}

func TestGet_InvalidFingerprint(t *testing.T) {
	code, _, errOut := runCLI(t, "", "get", "not-a-number")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid fingerprint")
}

func TestParseFingerprint(t *testing.T) {
	fp, err := parseFingerprint("0xff")
	require.NoError(t, err)
	assert.Equal(t, int64(255), fp.Int64())

	_, err = parseFingerprint("-1")
	assert.Error(t, err)
}

func TestVersionAndUsage(t *testing.T) {
	code, out, _ := runCLI(t, "", "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "xdao-rcf "+version+"\n", out)

	code, _, _ = runCLI(t, "", "frobnicate")
	assert.Equal(t, 2, code)

	code, out, _ = runCLI(t, "", "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "fingerprint")
}

func TestExportImport(t *testing.T) {
	dir := t.TempDir()
	srcCfg := writeFile(t, dir, "src.yaml", "store:\n  backends:\n    - kind: localfs\n      dir: "+filepath.Join(dir, "src")+"\n")
	dstCfg := writeFile(t, dir, "dst.yaml", "store:\n  backends:\n    - kind: localfs\n      dir: "+filepath.Join(dir, "dst")+"\n")
	schema := writeFile(t, dir, "item.avsc", itemDoc)
	bundlePath := filepath.Join(dir, "schemas.tar")

	code, out, errOut := runCLI(t, "", "--config", srcCfg, "put", schema)
	require.Equal(t, 0, code, errOut)
	fp := strings.SplitN(out, "\n", 2)[0]

	code, _, errOut = runCLI(t, "", "--config", srcCfg, "export", "-o", bundlePath, fp)
	require.Equal(t, 0, code, errOut)

	code, out, errOut = runCLI(t, "", "--config", dstCfg, "import", bundlePath)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, fp)

	code, out, _ = runCLI(t, "", "--config", dstCfg, "get", fp)
	require.Equal(t, 0, code)
	assert.Equal(t, itemRCF, out)
}

func TestInspect_DumpsRecursiveModel(t *testing.T) {
	path := writeFile(t, t.TempDir(), "item.avsc", itemDoc)
	code, out, errOut := runCLI(t, "", "inspect", path)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "(*schema.Record)")
	assert.Contains(t, out, `Name: (string) (len=4) "item"`)
	assert.Contains(t, out, "<already shown>")

	code, _, errOut = runCLI(t, `{"type":"nope"}`, "inspect", "-")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "SCHEMA-PARSE-004")
}
