// Package fpstore keeps canonical schema forms in a CAS and finds them again
// by fingerprint.
//
// A stored object is the RCF text itself, keyed by the CIDv1 (raw codec) whose
// multihash digest is the fingerprint. Looking up a fingerprint therefore needs
// no index: the CID is rebuilt from the integer and fetched directly.
package fpstore

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/ipfs/go-cid"
	"github.com/rs/zerolog"

	"xdao.co/rcf/cidutil"
	"xdao.co/rcf/rcf"
	"xdao.co/rcf/schema"
	"xdao.co/rcf/storage"
	"xdao.co/rcf/storage/bundle"
)

// Entry is one registered canonical form.
type Entry struct {
	Canonical   string
	Fingerprint *big.Int
	CID         cid.Cid
	Algorithm   rcf.Algorithm
}

type Options struct {
	Canonicalizer rcf.Canonicalizer
	// Log receives register/lookup events. The zero value discards them.
	Log zerolog.Logger
}

// Fullname returns the fullname of the top-level named type, or "" when the
// canonical form is not a record, enum or fixed.
func (e Entry) Fullname() string {
	sc, err := schema.Parse([]byte(e.Canonical))
	if err != nil {
		return ""
	}
	if n, ok := sc.(schema.Named); ok {
		return n.TypeName().Fullname()
	}
	return ""
}

// Store is safe for concurrent use when its CAS is.
type Store struct {
	cas   storage.CAS
	canon rcf.Canonicalizer
	alg   rcf.Algorithm
	log   zerolog.Logger
}

// New returns a Store over cas. The CAS must key objects by the same
// multihash code as opts.Canonicalizer's algorithm.
func New(cas storage.CAS, opts Options) (*Store, error) {
	if cas == nil {
		return nil, errors.New("fpstore: CAS is required")
	}
	alg := opts.Canonicalizer.Options.Algorithm
	if alg == 0 {
		alg = rcf.SHA256
	}
	if !cidutil.Supported(uint64(alg)) {
		return nil, fmt.Errorf("fpstore: %w", cidutil.ErrUnsupportedAlgorithm)
	}
	canon := opts.Canonicalizer
	canon.Options.Algorithm = alg
	return &Store{cas: cas, canon: canon, alg: alg, log: opts.Log}, nil
}

// Algorithm returns the fingerprint algorithm the store keys by.
func (s *Store) Algorithm() rcf.Algorithm { return s.alg }

// Register stores the canonical form of sc and returns its entry.
func (s *Store) Register(sc schema.Schema) (Entry, error) {
	text, err := s.canon.CanonicalForm(sc)
	if err != nil {
		return Entry{}, err
	}
	return s.put(text)
}

// RegisterText parses a schema document, stores its canonical form and returns
// its entry. The document need not be canonical.
func (s *Store) RegisterText(doc []byte) (Entry, error) {
	b, err := s.canon.NormalizeText(doc)
	if err != nil {
		return Entry{}, err
	}
	return s.put(string(b))
}

func (s *Store) put(text string) (Entry, error) {
	if err := s.canon.CheckRoundTrip([]byte(text)); err != nil {
		return Entry{}, err
	}
	want, err := rcf.CID(s.alg, text)
	if err != nil {
		return Entry{}, err
	}
	id, err := s.cas.Put([]byte(text))
	if err != nil {
		return Entry{}, fmt.Errorf("fpstore: put: %w", err)
	}
	if !id.Equals(want) {
		return Entry{}, fmt.Errorf("fpstore: backend keyed %s, want %s: %w", id, want, storage.ErrCIDMismatch)
	}
	e, err := s.entry(id, text)
	if err != nil {
		return Entry{}, err
	}
	s.log.Debug().Str("cid", id.String()).Str("alg", s.alg.String()).Msg("registered canonical form")
	return e, nil
}

// Lookup returns the canonical form whose fingerprint is fp.
func (s *Store) Lookup(fp *big.Int) (Entry, error) {
	id, err := cidutil.FingerprintCID(fp, uint64(s.alg))
	if err != nil {
		return Entry{}, fmt.Errorf("fpstore: %w", err)
	}
	return s.LookupCID(id)
}

// LookupCID returns the canonical form stored under id. Stored bytes that are
// not canonical under the store's options are reported as
// storage.ErrNotCanonical.
func (s *Store) LookupCID(id cid.Cid) (Entry, error) {
	b, err := s.cas.Get(id)
	if err != nil {
		s.log.Debug().Str("cid", id.String()).Err(err).Msg("lookup miss")
		return Entry{}, err
	}
	if _, err := s.canon.CanonicalizeText(b); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", storage.ErrNotCanonical, err)
	}
	return s.entry(id, string(b))
}

// Has reports whether a canonical form with fingerprint fp is stored.
func (s *Store) Has(fp *big.Int) bool {
	id, err := cidutil.FingerprintCID(fp, uint64(s.alg))
	if err != nil {
		return false
	}
	return s.cas.Has(id)
}

func (s *Store) entry(id cid.Cid, text string) (Entry, error) {
	fp, code, err := cidutil.CIDFingerprint(id)
	if err != nil {
		return Entry{}, fmt.Errorf("fpstore: %w", err)
	}
	return Entry{Canonical: text, Fingerprint: fp, CID: id, Algorithm: rcf.Algorithm(code)}, nil
}

// Export writes the canonical forms stored under ids as a bundle, labelled by
// fullname where the form has one. Every form is checked before export.
func (s *Store) Export(w io.Writer, ids []cid.Cid) error {
	labels := make(map[string]cid.Cid)
	for _, id := range ids {
		e, err := s.LookupCID(id)
		if err != nil {
			return err
		}
		if name := e.Fullname(); name != "" {
			labels[name] = id
		}
	}
	return bundle.Export(w, s.cas, ids, bundle.ExportOptions{Labels: labels, IncludeIndex: true})
}

// Import stores every block of the bundle read from r. Blocks must be
// canonical under the store's options.
func (s *Store) Import(r io.Reader) ([]Entry, error) {
	canon := s.canon
	ids, err := bundle.ImportWithOptions(r, s.cas, bundle.ImportOptions{Canonicalizer: &canon})
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		e, err := s.LookupCID(id)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	s.log.Info().Int("count", len(out)).Msg("imported bundle")
	return out, nil
}
