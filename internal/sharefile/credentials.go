package sharefile

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// AuthKind selects which credential a request primitive needs.
type AuthKind int

const (
	// AuthLegacy is the auth-id used by the .aspx RPC endpoints.
	AuthLegacy AuthKind = iota + 1
	// AuthREST is the OAuth bearer token used by the REST resources.
	AuthREST
)

func (k AuthKind) String() string {
	switch k {
	case AuthLegacy:
		return "https"
	case AuthREST:
		return "rest"
	default:
		return fmt.Sprintf("AuthKind(%d)", int(k))
	}
}

// credentialSlot caches a single credential. Concurrent first use collapses
// into one acquisition; the value is kept until cleared or replaced.
type credentialSlot[T any] struct {
	mu      sync.Mutex
	val     T
	present bool
	group   singleflight.Group
}

type slotResult[T any] struct {
	val T
	ok  bool
}

func (s *credentialSlot[T]) get() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.val, s.present
}

func (s *credentialSlot[T]) set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.val = v
	s.present = true
}

func (s *credentialSlot[T]) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	s.val = zero
	s.present = false
}

// getOrAcquire returns the cached value, or runs acquire when the slot is
// empty. acquire is responsible for storing its result in the slot. The
// acquisition is shared by every concurrent caller, so it runs without the
// first caller's cancellation; each caller still returns early when its own
// ctx is done.
func (s *credentialSlot[T]) getOrAcquire(ctx context.Context, acquire func(context.Context) (T, bool)) (T, bool) {
	if v, ok := s.get(); ok {
		return v, true
	}

	shared := context.WithoutCancel(ctx)

	ch := s.group.DoChan("acquire", func() (any, error) {
		// Another caller may have filled the slot between get and DoChan.
		if v, ok := s.get(); ok {
			return slotResult[T]{val: v, ok: true}, nil
		}

		v, ok := acquire(shared)

		return slotResult[T]{val: v, ok: ok}, nil
	})

	select {
	case res := <-ch:
		r := res.Val.(slotResult[T]) //nolint:forcetypeassert // only slotResult[T] is stored
		return r.val, r.ok
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}

// ensureAuth makes sure the credential for kind is present, acquiring it if
// the slot is empty. Acquisition failure is not an error here: the caller
// decides how to proceed with an absent credential.
func (c *Client) ensureAuth(ctx context.Context, kind AuthKind) error {
	switch kind {
	case AuthLegacy:
		c.authID.getOrAcquire(ctx, c.acquireAuthID)
		return nil
	case AuthREST:
		c.token.getOrAcquire(ctx, c.acquireToken)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidAuthKind, kind)
	}
}
