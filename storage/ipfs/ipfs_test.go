package ipfs

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/rcf/storage"
	"xdao.co/rcf/storage/testkit"
)

// fakeKubo answers block put/get/stat from a directory. Put echoes
// FAKE_IPFS_CID rather than hashing, so tests choose what Kubo "reports".
const fakeKubo = `#!/bin/sh
dir="$FAKE_IPFS_DIR"
case "$1 $2" in
"block put") cat > "$dir/incoming"; mv "$dir/incoming" "$dir/$FAKE_IPFS_CID"; echo "$FAKE_IPFS_CID" ;;
"block get") if [ -f "$dir/$3" ]; then cat "$dir/$3"; else echo "Error: block not found locally" >&2; exit 1; fi ;;
"block stat") [ -f "$dir/$3" ] ;;
*) exit 2 ;;
esac
`

func newFake(t *testing.T, reportCID string, hash uint64) *CAS {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake ipfs binary is a shell script")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "ipfs")
	require.NoError(t, os.WriteFile(bin, []byte(fakeKubo), 0o755))
	blocks := filepath.Join(dir, "blocks")
	require.NoError(t, os.Mkdir(blocks, 0o755))

	c, err := New(Options{
		Bin:  bin,
		Hash: hash,
		Env:  []string{"PATH=" + os.Getenv("PATH"), "FAKE_IPFS_DIR=" + blocks, "FAKE_IPFS_CID=" + reportCID},
	})
	require.NoError(t, err)
	return c
}

func TestIPFS_RoundTrip(t *testing.T) {
	payload := []byte(testkit.Sample)
	for _, hash := range testkit.Hashes {
		id, err := storage.Key(payload, hash)
		require.NoError(t, err)
		c := newFake(t, id.String(), hash)

		assert.False(t, c.Has(id))
		_, err = c.Get(id)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		got, err := c.Put(payload)
		require.NoError(t, err)
		assert.Equal(t, id, got)
		assert.True(t, c.Has(id))

		b, err := c.Get(id)
		require.NoError(t, err)
		assert.Equal(t, payload, b)
	}
}

func TestIPFS_PutDetectsForeignCID(t *testing.T) {
	other, err := storage.Key([]byte(`"int"`), storage.DefaultHash)
	require.NoError(t, err)
	c := newFake(t, other.String(), 0)

	_, err = c.Put([]byte(testkit.Sample))
	assert.ErrorIs(t, err, storage.ErrCIDMismatch)

	// The block stored under the foreign CID fails verification on read.
	_, err = c.Get(other)
	assert.ErrorIs(t, err, storage.ErrCIDMismatch)
}

func TestIPFS_New(t *testing.T) {
	_, err := New(Options{Hash: multihash.MD5})
	assert.Error(t, err)

	c, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, "ipfs", c.bin)
	assert.Equal(t, uint64(storage.DefaultHash), c.hash)
}
