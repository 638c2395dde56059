// Package cidutil derives multihash digests and CIDv1 identifiers for the
// 256-bit hash algorithms used by RCF fingerprints.
package cidutil

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"
)

// DigestSize is the size in bytes of every supported digest.
const DigestSize = 32

var (
	ErrUnsupportedAlgorithm = errors.New("cidutil: unsupported hash algorithm")
	ErrInvalidFingerprint   = errors.New("cidutil: fingerprint does not fit in 256 bits")
)

// Supported reports whether code is a multihash code this package can compute.
func Supported(code uint64) bool {
	switch code {
	case multihash.SHA2_256, multihash.SHA3_256, multihash.BLAKE3:
		return true
	}
	return false
}

// Digest returns the raw 32-byte digest of data under the multihash code.
func Digest(data []byte, code uint64) ([]byte, error) {
	switch code {
	case multihash.SHA2_256:
		sum := sha256.Sum256(data)
		return sum[:], nil
	case multihash.SHA3_256:
		sum := sha3.Sum256(data)
		return sum[:], nil
	case multihash.BLAKE3:
		sum := blake3.Sum256(data)
		return sum[:], nil
	default:
		return nil, fmt.Errorf("%w: 0x%x", ErrUnsupportedAlgorithm, code)
	}
}

// Sum returns the multihash of data under code.
func Sum(data []byte, code uint64) (multihash.Multihash, error) {
	if code == multihash.SHA2_256 {
		return multihash.Sum(data, multihash.SHA2_256, -1)
	}
	d, err := Digest(data, code)
	if err != nil {
		return nil, err
	}
	return multihash.Encode(d, code)
}

// CIDv1Raw returns a CIDv1 using the "raw" multicodec and the multihash of data under code.
func CIDv1Raw(data []byte, code uint64) (cid.Cid, error) {
	mh, err := Sum(data, code)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// FingerprintCID returns the CIDv1 (raw + code) whose digest is the big-endian
// encoding of fp. It is the inverse of CIDFingerprint.
func FingerprintCID(fp *big.Int, code uint64) (cid.Cid, error) {
	if !Supported(code) {
		return cid.Undef, fmt.Errorf("%w: 0x%x", ErrUnsupportedAlgorithm, code)
	}
	if fp == nil || fp.Sign() < 0 || fp.BitLen() > DigestSize*8 {
		return cid.Undef, ErrInvalidFingerprint
	}
	digest := fp.FillBytes(make([]byte, DigestSize))
	mh, err := multihash.Encode(digest, code)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// CIDFingerprint decodes a CID's multihash and returns its digest as a
// big-endian unsigned integer along with the multihash code.
func CIDFingerprint(c cid.Cid) (*big.Int, uint64, error) {
	if !c.Defined() {
		return nil, 0, errors.New("cidutil: undefined CID")
	}
	dm, err := multihash.Decode(c.Hash())
	if err != nil {
		return nil, 0, err
	}
	if !Supported(dm.Code) {
		return nil, 0, fmt.Errorf("%w: 0x%x", ErrUnsupportedAlgorithm, dm.Code)
	}
	if dm.Length != DigestSize {
		return nil, 0, fmt.Errorf("cidutil: digest length %d, want %d", dm.Length, DigestSize)
	}
	return new(big.Int).SetBytes(dm.Digest), dm.Code, nil
}

// Verify reports whether data hashes to c under c's own multihash code.
func Verify(c cid.Cid, data []byte) (bool, error) {
	_, code, err := CIDFingerprint(c)
	if err != nil {
		return false, err
	}
	got, err := CIDv1Raw(data, code)
	if err != nil {
		return false, err
	}
	return got.Equals(c), nil
}
