// Command xdao-rcf computes Resolution Canonical Forms and fingerprints of
// schema documents, and stores or retrieves them by fingerprint.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/davecgh/go-spew/spew"
	"github.com/ipfs/go-cid"
	"github.com/rs/zerolog"

	"xdao.co/rcf/cidutil"
	"xdao.co/rcf/config"
	"xdao.co/rcf/fpstore"
	"xdao.co/rcf/model"
	"xdao.co/rcf/rcf"
	"xdao.co/rcf/schema"
)

const version = "0.1.0"

type cli struct {
	Verbose bool   `short:"v" help:"Log debug output to stderr"`
	Config  string `name:"config" short:"c" help:"YAML config (store backends, canonical options)" type:"path"`

	Canonical   canonicalCmd   `cmd:"" help:"Print the canonical form of a schema document"`
	Fingerprint fingerprintCmd `cmd:"" help:"Print the fingerprint of a schema document"`
	Check       checkCmd       `cmd:"" help:"Verify that a file already is canonical RCF"`
	Put         putCmd         `cmd:"" help:"Store the canonical form of a schema document"`
	Get         getCmd         `cmd:"" help:"Print the stored canonical form for a fingerprint or CID"`
	Export      exportCmd      `cmd:"" help:"Write stored canonical forms to a bundle"`
	Import      importCmd      `cmd:"" help:"Store every canonical form in a bundle"`
	Inspect     inspectCmd     `cmd:"" help:"Dump the parsed schema model of a document"`
	Version     versionCmd     `cmd:"" help:"Print version information"`
}

// CanonicalFlags select canonicalizer options. They override the config file.
type CanonicalFlags struct {
	Alg                    string `name:"alg" help:"Fingerprint algorithm: sha2-256, sha3-256 or blake3"`
	FixedDecimalParameters bool   `name:"fixed-decimal-parameters" help:"Emit precision and scale for fixed decimals"`
	JSON                   bool   `name:"json" help:"Print a JSON result"`
}

// json reports whether the selected subcommand asked for JSON output. Only the
// selected subcommand's flags are ever set.
func (c *cli) json() bool {
	return c.Canonical.JSON || c.Fingerprint.JSON || c.Check.JSON || c.Put.JSON || c.Get.JSON || c.Import.JSON
}

// env carries what every subcommand needs.
type env struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	cfg    *config.Config
	log    zerolog.Logger
}

func (e *env) canonicalizer(f CanonicalFlags) (rcf.Canonicalizer, error) {
	c, err := e.cfg.Canonicalizer()
	if err != nil {
		return rcf.Canonicalizer{}, err
	}
	if f.Alg != "" {
		alg, err := rcf.ParseAlgorithm(f.Alg)
		if err != nil {
			return rcf.Canonicalizer{}, err
		}
		c.Options.Algorithm = alg
	}
	if f.FixedDecimalParameters {
		c.Options.FixedDecimalParameters = true
	}
	return c, nil
}

// request reads path into a model request carrying the options selected by
// the config file and f.
func (e *env) request(f CanonicalFlags, path string) (model.CanonicalRequest, error) {
	canon, err := e.canonicalizer(f)
	if err != nil {
		return model.CanonicalRequest{}, err
	}
	b, err := e.read(path)
	if err != nil {
		return model.CanonicalRequest{}, err
	}
	return model.CanonicalRequest{
		Schema:                 b,
		Algorithm:              canon.Options.Algorithm.String(),
		FixedDecimalParameters: canon.Options.FixedDecimalParameters,
	}, nil
}

func (e *env) read(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(e.in)
	}
	return os.ReadFile(path)
}

func (e *env) writeJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type canonicalCmd struct {
	File string `arg:"" help:"Schema document (- for stdin)"`
	CanonicalFlags `embed:""`
}

func (c *canonicalCmd) Run(e *env) error {
	req, err := e.request(c.CanonicalFlags, c.File)
	if err != nil {
		return err
	}
	resp, err := model.Canonicalize(req)
	if err != nil {
		return err
	}
	e.log.Debug().Str("file", c.File).Int("bytes", len(resp.Canonical)).Msg("normalized")
	if c.JSON {
		return e.writeJSON(resp)
	}
	// Canonical bytes are written as-is, with no trailing newline.
	_, err = io.WriteString(e.out, resp.Canonical)
	return err
}

type fingerprintCmd struct {
	File   string `arg:"" help:"Schema document (- for stdin)"`
	Format string `name:"format" default:"int" enum:"int,hex,cid" help:"Output format: int, hex or cid"`
	CanonicalFlags `embed:""`
}

func (c *fingerprintCmd) Run(e *env) error {
	req, err := e.request(c.CanonicalFlags, c.File)
	if err != nil {
		return err
	}
	resp, err := model.Canonicalize(req)
	if err != nil {
		return err
	}
	if c.JSON {
		return e.writeJSON(resp)
	}
	switch c.Format {
	case "hex":
		_, err = fmt.Fprintln(e.out, resp.Digest)
	case "cid":
		_, err = fmt.Fprintln(e.out, resp.CID)
	default:
		_, err = fmt.Fprintln(e.out, resp.Fingerprint)
	}
	return err
}

type checkCmd struct {
	File string `arg:"" help:"RCF file (- for stdin)"`
	CanonicalFlags `embed:""`
}

func (c *checkCmd) Run(e *env) error {
	req, err := e.request(c.CanonicalFlags, c.File)
	if err != nil {
		return err
	}
	resp, err := model.Check(req)
	if err != nil {
		return err
	}
	if c.JSON {
		if err := e.writeJSON(resp); err != nil {
			return err
		}
		if !resp.Canonical {
			return errReported
		}
		return nil
	}
	if !resp.Canonical {
		return resp.Error
	}
	_, err = fmt.Fprintln(e.out, "OK")
	return err
}

type putCmd struct {
	File string `arg:"" help:"Schema document (- for stdin)"`
	JSON bool   `name:"json" help:"Print a JSON result"`
}

func (c *putCmd) Run(e *env) error {
	store, closeFn, err := e.openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	b, err := e.read(c.File)
	if err != nil {
		return err
	}
	entry, err := store.RegisterText(b)
	if err != nil {
		return err
	}
	if c.JSON {
		return e.writeJSON(model.FromEntry(entry))
	}
	_, err = fmt.Fprintf(e.out, "%s\n%s\n", entry.Fingerprint, entry.CID)
	return err
}

type getCmd struct {
	Ref  string `arg:"" help:"Decimal fingerprint, 0x-prefixed hex digest, or CID"`
	JSON bool   `name:"json" help:"Print a JSON result"`
}

func (c *getCmd) Run(e *env) error {
	store, closeFn, err := e.openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	id, err := resolveRef(store, c.Ref)
	if err != nil {
		return err
	}
	entry, err := store.LookupCID(id)
	if err != nil {
		return err
	}
	if c.JSON {
		return e.writeJSON(model.FromEntry(entry))
	}
	_, err = io.WriteString(e.out, entry.Canonical)
	return err
}

type exportCmd struct {
	Refs []string `arg:"" help:"Fingerprints or CIDs to export"`
	Out  string   `short:"o" required:"" help:"Bundle file to write" type:"path"`
}

func (c *exportCmd) Run(e *env) error {
	store, closeFn, err := e.openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	ids := make([]cid.Cid, 0, len(c.Refs))
	for _, ref := range c.Refs {
		id, err := resolveRef(store, ref)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	f, err := os.Create(c.Out)
	if err != nil {
		return err
	}
	if err := store.Export(f, ids); err != nil {
		_ = f.Close()
		_ = os.Remove(c.Out)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	e.log.Debug().Int("count", len(ids)).Str("file", c.Out).Msg("exported bundle")
	return nil
}

type importCmd struct {
	File string `arg:"" help:"Bundle file (- for stdin)"`
	JSON bool   `name:"json" help:"Print a JSON result"`
}

func (c *importCmd) Run(e *env) error {
	store, closeFn, err := e.openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	var r io.Reader = e.in
	if c.File != "-" {
		f, err := os.Open(c.File)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	entries, err := store.Import(r)
	if err != nil {
		return err
	}
	if c.JSON {
		resp := make([]model.CanonicalResponse, 0, len(entries))
		for _, en := range entries {
			resp = append(resp, model.FromEntry(en))
		}
		return e.writeJSON(resp)
	}
	for _, en := range entries {
		if _, err := fmt.Fprintf(e.out, "%s %s\n", en.CID, en.Fingerprint); err != nil {
			return err
		}
	}
	return nil
}

type inspectCmd struct {
	File string `arg:"" help:"Schema document (- for stdin)"`
}

// Recursive types print as <already shown> on their second visit.
var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func (c *inspectCmd) Run(e *env) error {
	b, err := e.read(c.File)
	if err != nil {
		return err
	}
	s, err := schema.Parse(b)
	if err != nil {
		return err
	}
	dumper.Fdump(e.out, s)
	return nil
}

type versionCmd struct{}

func (versionCmd) Run(e *env) error {
	_, err := fmt.Fprintf(e.out, "xdao-rcf %s\n", version)
	return err
}

func (e *env) openStore() (*fpstore.Store, func() error, error) {
	canon, err := e.cfg.Canonicalizer()
	if err != nil {
		return nil, nil, err
	}
	cas, closeFn, err := e.cfg.Store.Open(uint64(canon.Options.Algorithm))
	if err != nil {
		return nil, nil, err
	}
	store, err := fpstore.New(cas, fpstore.Options{Canonicalizer: canon, Log: e.log})
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return store, closeFn, nil
}

// resolveRef turns a CID or fingerprint argument into the CID the store keys by.
func resolveRef(store *fpstore.Store, ref string) (cid.Cid, error) {
	if id, ok := parseCID(ref); ok {
		return id, nil
	}
	fp, err := parseFingerprint(ref)
	if err != nil {
		return cid.Undef, err
	}
	return cidutil.FingerprintCID(fp, uint64(store.Algorithm()))
}

func parseCID(s string) (cid.Cid, bool) {
	if !strings.HasPrefix(s, "b") {
		return cid.Undef, false
	}
	id, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, false
	}
	return id, true
}

func parseFingerprint(s string) (*big.Int, error) {
	base, digits := 10, s
	if strings.HasPrefix(s, "0x") {
		base, digits = 16, s[2:]
	}
	fp, ok := new(big.Int).SetString(digits, base)
	if !ok || fp.Sign() < 0 {
		return nil, fmt.Errorf("invalid fingerprint %q", s)
	}
	return fp, nil
}

// errReported means the command already wrote its failure to stdout.
var errReported = errors.New("reported")

type exitCode int

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, in io.Reader, out io.Writer, errOut io.Writer) (code int) {
	var c cli
	defer func() {
		if r := recover(); r != nil {
			ec, ok := r.(exitCode)
			if !ok {
				panic(r)
			}
			code = int(ec)
		}
	}()

	parser, err := kong.New(&c,
		kong.Name("xdao-rcf"),
		kong.Description("Resolution Canonical Form and fingerprint tool"),
		kong.Writers(out, errOut),
		kong.Exit(func(code int) { panic(exitCode(code)) }),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%s", err)
		return 2
	}

	cfg, err := loadConfig(c.Config)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	logCfg := cfg.Log
	logCfg.Format = "console"
	if c.Verbose {
		logCfg.Level = "debug"
	} else {
		logCfg.Level = "warn"
	}
	log, err := logCfg.Logger(errOut)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	e := &env{in: in, out: out, errOut: errOut, cfg: cfg, log: log}
	if err := ctx.Run(e); err != nil {
		return report(e, ctx.Command(), c.json(), err)
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

// report prints err and maps it to an exit code: 1 for rejected input, 2 for
// usage or configuration problems.
func report(e *env, command string, asJSON bool, err error) int {
	if errors.Is(err, errReported) {
		return 1
	}
	ce := model.MapError(err)
	e.log.Debug().Str("command", command).Str("code", string(ce.Code)).Str("rule", ce.RuleID).Msg("command failed")
	exit := 1
	if ce.Code == model.ErrUnsupportedAlgorithm {
		exit = 2
	}
	if asJSON {
		_ = e.writeJSON(ce)
		return exit
	}
	switch {
	case ce.Code == model.ErrUnsupportedAlgorithm:
		fmt.Fprintf(e.errOut, "usage: %s\n", ce.Message)
	case ce.Code == model.ErrInternal:
		fmt.Fprintf(e.errOut, "error: %s\n", ce.Message)
	case ce.RuleID != "":
		fmt.Fprintf(e.errOut, "invalid: %s: %s\n", ce.RuleID, ce.Message)
	default:
		fmt.Fprintf(e.errOut, "invalid: %s\n", ce.Message)
	}
	return exit
}
