package rcf

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/rcf/cidutil"
)

// Algorithm identifies a 256-bit fingerprint hash by its multihash code.
type Algorithm uint64

const (
	SHA256  = Algorithm(multihash.SHA2_256)
	SHA3256 = Algorithm(multihash.SHA3_256)
	BLAKE3  = Algorithm(multihash.BLAKE3)
)

// String returns the multihash name of the algorithm (e.g. "sha2-256").
func (a Algorithm) String() string {
	if name, ok := multihash.Codes[uint64(a)]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%x)", uint64(a))
}

func (a Algorithm) orDefault() Algorithm {
	if a == 0 {
		return SHA256
	}
	return a
}

// ParseAlgorithm resolves a multihash name ("sha2-256", "sha3-256", "blake3").
// The empty string selects SHA256.
func ParseAlgorithm(name string) (Algorithm, error) {
	if name == "" {
		return SHA256, nil
	}
	code, ok := multihash.Names[name]
	if !ok || !cidutil.Supported(code) {
		return 0, newError(KindDigest, "RCF-DIGEST-001", fmt.Sprintf("unsupported fingerprint algorithm %q", name))
	}
	return Algorithm(code), nil
}

// Fingerprint returns the SHA-256 digest of text's UTF-8 bytes, read as a
// big-endian unsigned integer.
func Fingerprint(text string) *big.Int {
	fp, err := FingerprintWith(SHA256, text)
	if err != nil {
		// SHA-256 is always supported.
		panic(err)
	}
	return fp
}

// FingerprintWith is Fingerprint with an explicit 256-bit algorithm.
func FingerprintWith(alg Algorithm, text string) (*big.Int, error) {
	d, err := digest(alg, text)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(d), nil
}

// DigestHex returns the fingerprint digest as 64 lowercase hex characters.
func DigestHex(alg Algorithm, text string) (string, error) {
	d, err := digest(alg, text)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(d), nil
}

// CID returns the CIDv1 (raw codec) of text under alg. Its multihash digest
// is the fingerprint.
func CID(alg Algorithm, text string) (cid.Cid, error) {
	c, err := cidutil.CIDv1Raw([]byte(text), uint64(alg.orDefault()))
	if err != nil {
		return cid.Undef, wrapError(KindDigest, "RCF-DIGEST-001", "unsupported fingerprint algorithm", err)
	}
	return c, nil
}

func digest(alg Algorithm, text string) ([]byte, error) {
	d, err := cidutil.Digest([]byte(text), uint64(alg.orDefault()))
	if err != nil {
		return nil, wrapError(KindDigest, "RCF-DIGEST-001", "unsupported fingerprint algorithm", err)
	}
	return d, nil
}
