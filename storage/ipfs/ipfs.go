// Package ipfs adapts a local Kubo repository to storage.CAS.
package ipfs

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/rcf/storage"
)

// CAS is a store backed by the local Kubo "ipfs" CLI.
//
// It operates on the local IPFS repo and does not require a daemon. Blocks are
// written as raw CIDv1 blocks under the configured multihash, so the CID Kubo
// reports is the one storage.Key derives and its digest is the fingerprint.
// Bytes returned by Get are verified against the requested CID.
type CAS struct {
	bin  string
	env  []string
	hash uint64
}

type Options struct {
	// Bin is the path to the ipfs binary. If empty, "ipfs" is used.
	Bin string
	// Env optionally overrides the command environment (e.g. to set IPFS_PATH).
	// If nil, the process environment is used.
	Env []string
	// Hash is the multihash code blocks are written with. Zero means
	// storage.DefaultHash.
	Hash uint64
}

func New(opts Options) (*CAS, error) {
	hash, err := storage.HashOrDefault(opts.Hash)
	if err != nil {
		return nil, err
	}
	bin := opts.Bin
	if bin == "" {
		bin = "ipfs"
	}
	return &CAS{bin: bin, env: opts.Env, hash: hash}, nil
}

func (c *CAS) Put(data []byte) (cid.Cid, error) {
	id, err := storage.Key(data, c.hash)
	if err != nil {
		return cid.Undef, err
	}

	out, err := c.run(data,
		"block", "put",
		"--quiet",
		"--cid-codec=raw",
		"--mhtype="+multihash.Codes[c.hash],
		"--mhlen=32",
		"/dev/stdin",
	)
	if err != nil {
		return cid.Undef, err
	}

	got, err := cid.Decode(strings.TrimSpace(string(out)))
	if err != nil {
		return cid.Undef, fmt.Errorf("ipfs: unexpected block put output: %w", err)
	}
	if !got.Equals(id) {
		return cid.Undef, storage.ErrCIDMismatch
	}
	return id, nil
}

func (c *CAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}

	out, err := c.run(nil, "block", "get", id.String())
	if err != nil {
		if isLikelyNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	if err := storage.Check(id, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := c.run(nil, "block", "stat", id.String())
	return err == nil
}

func (c *CAS) run(stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.Command(c.bin, args...)
	if c.env != nil {
		cmd.Env = c.env
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		s := strings.TrimSpace(string(ee.Stderr))
		if s == "" {
			return nil, fmt.Errorf("ipfs: %v", err)
		}
		return nil, fmt.Errorf("ipfs: %s", s)
	}
	return nil, err
}

func isLikelyNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "block not found")
}
