package turn

import (
	"context"
	"sync"
)

// CaptureGate allows one in-flight turn per owner. Acquiring the gate cancels the owner's
// current turn and waits for it to let go, so playback of an old reply stops before a new
// capture is processed
type CaptureGate struct {
	mu      sync.Mutex
	holders map[string]*hold
}

type hold struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCaptureGate creates an empty gate
func NewCaptureGate() *CaptureGate {
	return &CaptureGate{holders: make(map[string]*hold)}
}

// Acquire takes the owner's slot. The returned context is cancelled when the slot is
// preempted or released; release must be called exactly when the holder is finished and is
// idempotent
func (g *CaptureGate) Acquire(ctx context.Context, owner string) (context.Context, func(), error) {
	for {
		g.mu.Lock()
		current, busy := g.holders[owner]
		if !busy {
			holderCtx, cancel := context.WithCancel(ctx)
			h := &hold{cancel: cancel, done: make(chan struct{})}
			g.holders[owner] = h
			g.mu.Unlock()

			var once sync.Once
			release := func() {
				once.Do(func() {
					cancel()
					g.mu.Lock()
					if g.holders[owner] == h {
						delete(g.holders, owner)
					}
					g.mu.Unlock()
					close(h.done)
				})
			}
			return holderCtx, release, nil
		}
		g.mu.Unlock()

		current.cancel()
		select {
		case <-current.done:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
}

// Busy reports whether the owner currently holds the gate
func (g *CaptureGate) Busy(owner string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.holders[owner]
	return busy
}
