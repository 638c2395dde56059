// Package testkit holds the conformance suite every CAS backend must pass.
package testkit

import (
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/rcf/cidutil"
	"xdao.co/rcf/storage"
)

// NewCAS constructs a fresh, empty CAS keyed by the multihash code hash.
// The returned CAS MUST be isolated from other tests.
type NewCAS func(t *testing.T, hash uint64) storage.CAS

// Hashes lists the multihash codes the suite exercises.
var Hashes = []uint64{multihash.SHA2_256, multihash.SHA3_256, multihash.BLAKE3}

// Sample is a canonical form used as a payload.
const Sample = `{"name":"item","type":"record","fields":[{"name":"next","type":["null","item"],"default":null}]}`

func RunCASConformance(t *testing.T, newCAS NewCAS) {
	t.Helper()

	for _, hash := range Hashes {
		t.Run(multihash.Codes[hash], func(t *testing.T) {
			runOne(t, newCAS, hash)
		})
	}
}

func runOne(t *testing.T, newCAS NewCAS, hash uint64) {
	t.Run("PutGetRoundTrip", func(t *testing.T) {
		cas := newCAS(t, hash)
		want := []byte(Sample)

		id, err := cas.Put(want)
		require.NoError(t, err)
		wantID, err := cidutil.CIDv1Raw(want, hash)
		require.NoError(t, err)
		assert.Equal(t, wantID, id)

		got, err := cas.Get(id)
		require.NoError(t, err)
		assert.Equal(t, want, got)

		ok, err := cidutil.Verify(id, got)
		require.NoError(t, err)
		assert.True(t, ok, "Get returned bytes not matching requested CID")
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		cas := newCAS(t, hash)
		b := []byte(`"int"`)

		id1, err := cas.Put(b)
		require.NoError(t, err)
		id2, err := cas.Put(b)
		require.NoError(t, err)
		assert.Equal(t, id1, id2)
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		cas := newCAS(t, hash)
		b := []byte(`"string"`)
		id, err := cidutil.CIDv1Raw(b, hash)
		require.NoError(t, err)

		assert.False(t, cas.Has(id))
		_, err = cas.Get(id)
		assert.True(t, storage.IsNotFound(err), "Get missing: got %v", err)

		_, err = cas.Put(b)
		require.NoError(t, err)
		assert.True(t, cas.Has(id))
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		cas := newCAS(t, hash)
		var undef cid.Cid
		assert.False(t, cas.Has(undef))
		_, err := cas.Get(undef)
		assert.Error(t, err)
	})
}
