package storage

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/rcf/cidutil"
)

// CAS is a content-addressable store for canonical schema text.
//
// Contract:
// - Put MUST be idempotent.
// - Stored objects MUST be immutable.
// - CIDs are CIDv1 (raw codec) over the multihash of the bytes written, so the
//   CID digest of a stored RCF is its fingerprint.
// - Get MUST verify the bytes against the requested CID and return ErrNotFound
//   when the CID is absent.
type CAS interface {
	Put(bytes []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}

// DefaultHash is the multihash code used when a backend is not configured
// with one.
const DefaultHash = multihash.SHA2_256

// HashOrDefault validates code, mapping zero to DefaultHash.
func HashOrDefault(code uint64) (uint64, error) {
	if code == 0 {
		return DefaultHash, nil
	}
	if !cidutil.Supported(code) {
		return 0, cidutil.ErrUnsupportedAlgorithm
	}
	return code, nil
}

// Key derives the CID under which a backend hashing with code stores b.
func Key(b []byte, code uint64) (cid.Cid, error) {
	id, err := cidutil.CIDv1Raw(b, code)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, ErrInvalidCID
	}
	return id, nil
}

// Check returns ErrCIDMismatch unless b hashes to id.
func Check(id cid.Cid, b []byte) error {
	ok, err := cidutil.Verify(id, b)
	if err != nil {
		return ErrInvalidCID
	}
	if !ok {
		return ErrCIDMismatch
	}
	return nil
}
