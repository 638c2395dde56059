package memcas

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/rcf/storage"
	"xdao.co/rcf/storage/testkit"
)

func TestMemCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T, hash uint64) storage.CAS {
		t.Helper()
		cas, err := New(hash)
		require.NoError(t, err)
		return cas
	})
}

func TestMemCAS_GetReturnsCopy(t *testing.T) {
	cas, err := New(0)
	require.NoError(t, err)
	id, err := cas.Put([]byte(testkit.Sample))
	require.NoError(t, err)

	b, err := cas.Get(id)
	require.NoError(t, err)
	b[0] = 'X'

	again, err := cas.Get(id)
	require.NoError(t, err)
	assert.Equal(t, testkit.Sample, string(again))
}

func TestMemCAS_ConcurrentPut(t *testing.T) {
	cas, err := New(0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cas.Put([]byte(testkit.Sample))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, cas.Len())
}
