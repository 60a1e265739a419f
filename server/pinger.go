package server

import (
	"context"
	"time"
)

// Pinger periodically invokes a ping callback for a single connection and
// accepts pong notifications back. Without it, a half-open connection would
// hold its room populated until the transport notices on its own.
type Pinger struct {
	ticker *time.Ticker
	pongCh chan struct{}
	ping   func()
}

// NewPinger starts a ticker with the given interval. The ping callback is
// called on every tick until ctx is done.
func NewPinger(ctx context.Context, interval time.Duration, ping func()) *Pinger {
	p := &Pinger{
		ticker: time.NewTicker(interval),
		pongCh: make(chan struct{}, 1),
		ping:   ping,
	}

	go p.run(ctx)

	return p
}

func (p *Pinger) run(ctx context.Context) {
	defer p.ticker.Stop()

	lastPongTime := time.Time{}

	for {
		select {
		case <-p.ticker.C:
			// TODO disconnect when no pong was received for several intervals.
			_ = lastPongTime

			p.ping()
		case <-p.pongCh:
			lastPongTime = time.Now()
		case <-ctx.Done():
			return
		}
	}
}

// ReceivePong notifies the pinger of a pong response without blocking.
func (p *Pinger) ReceivePong() {
	select {
	case p.pongCh <- struct{}{}:
	default: // An unprocessed pong is already queued.
	}
}
