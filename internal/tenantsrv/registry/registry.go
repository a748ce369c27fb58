// Package registry maintains the process-wide cache of live per-schema
// database connections. Each tenant schema has at most one live handle at a
// time; concurrent first requests for the same schema share a single
// initialization, and unrelated schemas never contend on a common lock.
package registry

import (
	"context"
	"hash/fnv"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/taskhive/taskhive/internal/common/apperrors"
	"golang.org/x/sync/singleflight"
)

var (
	ErrRegistry         apperrors.Error = apperrors.New("tenant connection error").SetStatusCode(http.StatusServiceUnavailable)
	ErrConnectionFailed apperrors.Error = ErrRegistry.New("unable to establish tenant connection").SetStatusCode(http.StatusServiceUnavailable)
	ErrWaitAborted      apperrors.Error = ErrRegistry.New("aborted while waiting for tenant connection").SetStatusCode(http.StatusServiceUnavailable)
)

// Dialer establishes a connection handle scoped to the given schema. The
// context passed to it is detached from any single request and carries the
// configured dial timeout.
type Dialer func(ctx context.Context, schemaName string) (*Handle, error)

// Options configures a Registry.
type Options struct {
	// DialTimeout bounds connection establishment. Zero means no bound.
	DialTimeout time.Duration
}

const shardCount = 32

type shard struct {
	mu      sync.RWMutex
	handles map[string]*Handle
}

// Registry is the process-wide connection cache. It is owned by the server
// process and injected into request handling; all methods are safe for
// concurrent use.
type Registry struct {
	dial        Dialer
	dialTimeout time.Duration
	shards      [shardCount]shard
	group       singleflight.Group
	dials       uint64 // physical connection establishments attempted
}

// New creates a Registry that establishes connections with the given dialer.
func New(dial Dialer, opts Options) *Registry {
	r := &Registry{
		dial:        dial,
		dialTimeout: opts.DialTimeout,
	}
	for i := range r.shards {
		r.shards[i].handles = make(map[string]*Handle)
	}
	return r
}

func (r *Registry) shardFor(schemaName string) *shard {
	h := fnv.New32a()
	h.Write([]byte(schemaName))
	return &r.shards[h.Sum32()%shardCount]
}

func (r *Registry) lookup(schemaName string) *Handle {
	s := r.shardFor(schemaName)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handles[schemaName]
}

func (r *Registry) store(schemaName string, h *Handle) {
	s := r.shardFor(schemaName)
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.handles[schemaName]; ok && old != h {
		// at most one live handle per schema
		old.Close()
	}
	s.handles[schemaName] = h
}

// Get returns the live connection handle for the given schema, establishing
// it if absent. Concurrent callers for the same uninitialized schema share a
// single establishment; on failure nothing is cached, so a later caller
// retries cleanly.
//
// Establishment runs to completion even if the calling request is aborted:
// the connection is a shared resource, not a request-scoped one. An aborted
// caller gets ErrWaitAborted while the dial finishes in flight and, on
// success, populates the cache for subsequent requests.
func (r *Registry) Get(ctx context.Context, schemaName string) (*Handle, error) {
	if schemaName == "" {
		return nil, ErrRegistry.Msg("schema name is required")
	}

	if h := r.lookup(schemaName); h != nil {
		return h, nil
	}

	ch := r.group.DoChan(schemaName, func() (any, error) {
		// another caller may have populated the cache while we queued
		if h := r.lookup(schemaName); h != nil {
			return h, nil
		}

		atomic.AddUint64(&r.dials, 1)

		dctx := context.WithoutCancel(ctx)
		if r.dialTimeout > 0 {
			var cancel context.CancelFunc
			dctx, cancel = context.WithTimeout(dctx, r.dialTimeout)
			defer cancel()
		}

		h, err := r.dial(dctx, schemaName)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("schema", schemaName).Msg("tenant connection establishment failed")
			return nil, ErrConnectionFailed.Err(err)
		}
		r.store(schemaName, h)
		return h, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			if aerr, ok := res.Err.(apperrors.Error); ok {
				return nil, aerr
			}
			return nil, ErrConnectionFailed.Err(res.Err)
		}
		return res.Val.(*Handle), nil
	case <-ctx.Done():
		return nil, ErrWaitAborted.Err(ctx.Err())
	}
}

// Invalidate closes and removes the cached handle for the given schema.
// It is idempotent against an absent or already-closed entry. Used when a
// schema is dropped or its tenant is suspended.
func (r *Registry) Invalidate(schemaName string) {
	s := r.shardFor(schemaName)
	s.mu.Lock()
	h, ok := s.handles[schemaName]
	delete(s.handles, schemaName)
	s.mu.Unlock()

	r.group.Forget(schemaName)

	if ok {
		h.Close()
	}
}

// DrainAll closes every cached connection and clears the registry. Used at
// process shutdown. Each individual close is idempotent.
func (r *Registry) DrainAll() {
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		for name, h := range s.handles {
			h.Close()
			delete(s.handles, name)
		}
		s.mu.Unlock()
	}
}

// Stats returns the number of physical connection establishments attempted
// and the number of handles currently cached.
func (r *Registry) Stats() (dials uint64, cached int) {
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		cached += len(s.handles)
		s.mu.RUnlock()
	}
	return atomic.LoadUint64(&r.dials), cached
}
