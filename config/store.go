package config

import (
	"errors"
	"fmt"
	"os"

	"xdao.co/rcf/storage"
	"xdao.co/rcf/storage/grpccas"
	"xdao.co/rcf/storage/ipfs"
	"xdao.co/rcf/storage/localfs"
	"xdao.co/rcf/storage/memcas"
)

func (b BackendConfig) name() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Kind
}

func (s StoreConfig) Validate() error {
	if len(s.Backends) == 0 {
		return errors.New("store: at least one backend is required")
	}
	seen := make(map[string]struct{}, len(s.Backends))
	for _, b := range s.Backends {
		switch b.Kind {
		case "memory":
		case "localfs":
			if b.Dir == "" {
				return fmt.Errorf("store: localfs backend %q requires dir", b.name())
			}
		case "ipfs":
		case "grpc":
			if b.Target == "" {
				return fmt.Errorf("store: grpc backend %q requires target", b.name())
			}
		case "":
			return errors.New("store: backend kind is required")
		default:
			return fmt.Errorf("store: unknown backend kind %q", b.Kind)
		}
		id := b.name()
		if _, ok := seen[id]; ok {
			return fmt.Errorf("store: duplicate backend id %q", id)
		}
		seen[id] = struct{}{}
	}
	switch s.WritePolicy {
	case "", "first", "all":
		return nil
	default:
		return fmt.Errorf("store: invalid write_policy %q", s.WritePolicy)
	}
}

// Open opens every backend keyed by the multihash code hash and combines
// them per WritePolicy. The returned func closes whatever was opened.
func (s StoreConfig) Open(hash uint64) (storage.CAS, func() error, error) {
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}

	named := make([]storage.NamedCAS, 0, len(s.Backends))
	closers := make([]func() error, 0, len(s.Backends))
	closeAll := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	for _, b := range s.Backends {
		cas, closeFn, err := openBackend(b, hash)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("store: open %q: %w", b.name(), err)
		}
		named = append(named, storage.NamedCAS{Name: b.name(), CAS: cas})
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
	}

	if len(named) == 1 {
		return named[0].CAS, closeAll, nil
	}
	if s.WritePolicy == "all" {
		return storage.ReplicatingCAS{Backends: named, Hash: hash}, closeAll, nil
	}
	adapters := make([]storage.CAS, 0, len(named))
	for _, n := range named {
		adapters = append(adapters, n.CAS)
	}
	return storage.MultiCAS{Adapters: adapters}, closeAll, nil
}

func openBackend(b BackendConfig, hash uint64) (storage.CAS, func() error, error) {
	switch b.Kind {
	case "memory":
		cas, err := memcas.New(hash)
		return cas, nil, err
	case "localfs":
		cas, err := localfs.New(b.Dir, hash)
		return cas, nil, err
	case "ipfs":
		var env []string
		if b.IPFSPath != "" {
			env = append(os.Environ(), "IPFS_PATH="+b.IPFSPath)
		}
		cas, err := ipfs.New(ipfs.Options{Bin: b.Bin, Env: env, Hash: hash})
		return cas, nil, err
	case "grpc":
		c, err := grpccas.Dial(b.Target, grpccas.DialOptions{
			Timeout:     b.Timeout,
			MaxMsgBytes: b.MaxMsgBytes,
			Hash:        hash,
		})
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend kind %q", b.Kind)
	}
}
