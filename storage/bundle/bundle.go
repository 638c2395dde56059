// Package bundle moves sets of canonical schema forms between stores as a
// deterministic TAR archive.
//
// Layout:
//
//	blocks/<cid>   canonical RCF bytes, one entry per CID
//	index.json     optional, non-authoritative: block sizes and schema labels
package bundle

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/rcf/rcf"
	"xdao.co/rcf/storage"
)

// FormatVersion is the current bundle index schema version.
const FormatVersion = 1

var epoch0 = time.Unix(0, 0).UTC()

// ExportOptions controls bundle export behavior.
type ExportOptions struct {
	// Labels is optional, non-authoritative metadata mapping names (usually
	// schema fullnames) to CIDs.
	Labels map[string]cid.Cid
	// IncludeIndex controls whether index.json is included.
	IncludeIndex bool
}

// Export writes a deterministic TAR bundle containing the canonical forms for
// the given CIDs.
//
// Entry order is lexicographic and TAR headers are normalized, so the same set
// of CIDs always yields the same bytes. Every exported block is verified
// against its CID.
func Export(w io.Writer, cas storage.CAS, ids []cid.Cid, opts ExportOptions) error {
	if cas == nil {
		return fmt.Errorf("bundle: nil CAS")
	}

	uniq := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return storage.ErrInvalidCID
		}
		uniq[id.String()] = id
	}

	cidStrings := make([]string, 0, len(uniq))
	for s := range uniq {
		cidStrings = append(cidStrings, s)
	}
	sort.Strings(cidStrings)

	tw := tar.NewWriter(w)
	fail := func(err error) error {
		_ = tw.Close()
		return err
	}

	blocks := make([]indexBlock, 0, len(cidStrings))
	for _, s := range cidStrings {
		id := uniq[s]
		b, err := cas.Get(id)
		if err != nil {
			return fail(err)
		}
		if err := storage.Check(id, b); err != nil {
			return fail(err)
		}
		if err := writeFile(tw, "blocks/"+s, b); err != nil {
			return fail(err)
		}
		blocks = append(blocks, indexBlock{CID: s, Multihash: hashName(id), Size: len(b)})
	}

	if opts.IncludeIndex {
		idx := indexJSON{
			Version:  FormatVersion,
			CIDCodec: "raw",
			Blocks:   blocks,
		}

		if len(opts.Labels) > 0 {
			keys := make([]string, 0, len(opts.Labels))
			for k := range opts.Labels {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			labels := make([]indexLabel, 0, len(keys))
			for _, k := range keys {
				if k == "" {
					return fail(fmt.Errorf("bundle: empty label key"))
				}
				v := opts.Labels[k]
				if !v.Defined() {
					return fail(storage.ErrInvalidCID)
				}
				labels = append(labels, indexLabel{Name: k, CID: v.String()})
			}
			idx.Labels = labels
		}

		b, err := json.Marshal(idx)
		if err != nil {
			return fail(err)
		}
		if err := writeFile(tw, "index.json", append(b, '\n')); err != nil {
			return fail(err)
		}
	}

	return tw.Close()
}

// ImportOptions controls bundle import behavior.
type ImportOptions struct {
	// IgnoreUnknown controls whether unknown TAR entries are ignored.
	//
	// Default (false) is fail-closed: unknown entries cause Import to return an error.
	IgnoreUnknown bool

	// Canonicalizer, when set, rejects blocks that are not canonical RCF under
	// it with storage.ErrNotCanonical.
	Canonicalizer *rcf.Canonicalizer
}

// Import reads a bundle from r and imports all blocks into cas, fail-closed,
// returning the imported CIDs in bundle order.
func Import(r io.Reader, cas storage.CAS) ([]cid.Cid, error) {
	return ImportWithOptions(r, cas, ImportOptions{})
}

// ImportWithOptions reads a bundle from r and imports all blocks into cas.
//
// Each block's bytes must hash to the CID in its entry name, under that CID's
// own multihash.
func ImportWithOptions(r io.Reader, cas storage.CAS, opts ImportOptions) ([]cid.Cid, error) {
	if cas == nil {
		return nil, fmt.Errorf("bundle: nil CAS")
	}

	tr := tar.NewReader(r)
	seen := map[string]struct{}{}
	var imported []cid.Cid

	for {
		h, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return imported, nil
		}
		if err != nil {
			return imported, err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return imported, fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}

		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return imported, fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, name)
		}

		// Non-authoritative metadata.
		if name == "index.json" {
			_, _ = io.Copy(io.Discard, tr)
			continue
		}

		if !strings.HasPrefix(name, "blocks/") {
			if opts.IgnoreUnknown {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			return imported, fmt.Errorf("bundle: unknown entry: %s", name)
		}

		id, derr := cid.Decode(strings.TrimPrefix(name, "blocks/"))
		if derr != nil || !id.Defined() {
			return imported, storage.ErrInvalidCID
		}

		payload, rerr := io.ReadAll(tr)
		if rerr != nil {
			return imported, rerr
		}
		if err := storage.Check(id, payload); err != nil {
			return imported, err
		}
		if opts.Canonicalizer != nil {
			if _, err := opts.Canonicalizer.CanonicalizeText(payload); err != nil {
				return imported, fmt.Errorf("bundle: %s: %w: %v", id, storage.ErrNotCanonical, err)
			}
		}

		key := id.String()
		if _, ok := seen[key]; ok {
			return imported, fmt.Errorf("bundle: duplicate block entry: %s", key)
		}
		seen[key] = struct{}{}

		putID, perr := cas.Put(payload)
		if perr != nil {
			return imported, perr
		}
		if !putID.Equals(id) {
			return imported, storage.ErrCIDMismatch
		}
		imported = append(imported, id)
	}
}

type indexJSON struct {
	Version  int          `json:"version"`
	CIDCodec string       `json:"cidCodec"`
	Blocks   []indexBlock `json:"blocks"`
	Labels   []indexLabel `json:"labels,omitempty"`
}

type indexBlock struct {
	CID       string `json:"cid"`
	Multihash string `json:"multihash"`
	Size      int    `json:"size"`
}

type indexLabel struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
}

func hashName(id cid.Cid) string {
	dm, err := multihash.Decode(id.Hash())
	if err != nil {
		return ""
	}
	return multihash.Codes[dm.Code]
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatUSTAR,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}

	parts := strings.Split(name, "/")
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return strings.Join(parts, "/")
}
