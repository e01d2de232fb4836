package session

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/danmuck/edgeview/internal/observability"
	"github.com/danmuck/edgeview/internal/render"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog/log"
)

var ErrUnknownSession = errors.New("session: unknown session")

// Registry holds live sessions. A session expires after ttl without a
// request; when capacity is reached the least recently used one is evicted.
type Registry struct {
	cache *ttlcache.Cache[string, *Session]
	// live mirrors the cache size for the gauge; eviction callbacks run
	// under the cache lock and must not call back into it.
	live  *atomic.Int64
	cfg   render.Config
	build Builder
}

func NewRegistry(ctx context.Context, cfg render.Config, ttl time.Duration, capacity int, build Builder) *Registry {
	opts := []ttlcache.Option[string, *Session]{
		ttlcache.WithTTL[string, *Session](ttl),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, *Session](uint64(capacity)))
	}
	cache := ttlcache.New[string, *Session](opts...)
	live := new(atomic.Int64)

	cache.OnInsertion(func(ctx context.Context, item *ttlcache.Item[string, *Session]) {
		observability.SetActiveSessions(int(live.Add(1)))
	})
	cache.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Session]) {
		log.Info().
			Str("session", item.Key()).
			Str("reason", evictionReason(reason)).
			Msg("session.Registry evicted")
		observability.SetActiveSessions(int(live.Add(-1)))
	})

	go cache.Start()
	go func() {
		<-ctx.Done()
		cache.Stop()
	}()

	return &Registry{cache: cache, live: live, cfg: cfg, build: build}
}

// Create builds and stores a new session.
func (r *Registry) Create() (*Session, error) {
	s, err := New(r.cfg, r.build)
	if err != nil {
		return nil, err
	}
	r.cache.Set(s.ID(), s, ttlcache.DefaultTTL)
	log.Debug().Str("session", s.ID()).Msg("session.Registry created")
	return s, nil
}

// Get returns a live session and extends its lifetime.
func (r *Registry) Get(id string) (*Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrUnknownSession
	}
	item := r.cache.Get(id)
	if item == nil {
		return nil, ErrUnknownSession
	}
	return item.Value(), nil
}

func (r *Registry) Remove(id string) {
	r.cache.Delete(id)
}

func (r *Registry) Len() int {
	return r.cache.Len()
}

// Snapshot lists every live session ordered by id, which is creation order.
func (r *Registry) Snapshot() []Info {
	items := r.cache.Items()
	out := make([]Info, 0, len(items))
	for _, item := range items {
		out = append(out, item.Value().Info())
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func evictionReason(reason ttlcache.EvictionReason) string {
	switch reason {
	case ttlcache.EvictionReasonExpired:
		return "expired"
	case ttlcache.EvictionReasonCapacityReached:
		return "capacity"
	case ttlcache.EvictionReasonDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}
