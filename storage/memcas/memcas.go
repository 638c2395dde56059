// Package memcas is an in-memory CAS, used by tests and the "memory" backend.
package memcas

import (
	"bytes"
	"sync"

	"github.com/ipfs/go-cid"

	"xdao.co/rcf/storage"
)

type CAS struct {
	hash uint64

	mu      sync.RWMutex
	objects map[string][]byte
}

var _ storage.CAS = (*CAS)(nil)

// New returns an empty store keyed by the multihash code hash (zero selects
// storage.DefaultHash).
func New(hash uint64) (*CAS, error) {
	code, err := storage.HashOrDefault(hash)
	if err != nil {
		return nil, err
	}
	return &CAS{hash: code, objects: make(map[string][]byte)}, nil
}

func (c *CAS) Put(b []byte) (cid.Cid, error) {
	id, err := storage.Key(b, c.hash)
	if err != nil {
		return cid.Undef, err
	}
	k := id.KeyString()

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.objects[k]; ok {
		if !bytes.Equal(existing, b) {
			return cid.Undef, storage.ErrImmutable
		}
		return id, nil
	}
	c.objects[k] = bytes.Clone(b)
	return id, nil
}

func (c *CAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	c.mu.RLock()
	b, ok := c.objects[id.KeyString()]
	c.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	return bytes.Clone(b), nil
}

func (c *CAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.objects[id.KeyString()]
	return ok
}

// Len returns the number of stored objects.
func (c *CAS) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}
