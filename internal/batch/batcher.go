// Package batch provides the coordination primitive that turns
// near-simultaneous registrations into a single batch. Both tool-call
// dispatch and shell-command execution are built on it.
package batch

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var batcherLog = logrus.WithField("component", "batcher")

// RoundFunc computes one whole batch. It receives the payloads of a round in
// registration (sequence) order and must return exactly one result per
// payload, positionally aligned.
type RoundFunc[P, R any] func(ctx context.Context, payloads []P) []R

type registration[P, R any] struct {
	seq     int64
	payload P
	result  chan R
}

type round[P, R any] struct {
	barrier chan struct{}
	regs    []*registration[P, R]
	drained bool
}

// Batcher groups registrations that arrive within one debounce window into a
// single round. Every registration blocks until the round's barrier closes;
// the registration holding the minimum sequence id then drains the round,
// runs the round function once over all payloads, and releases every
// registrant, itself included. Exactly one drain happens per round, and a
// registration that arrives after the drain opens the next round.
type Batcher[P, R any] struct {
	mu       sync.Mutex
	debounce time.Duration
	run      RoundFunc[P, R]
	current  *round[P, R]
	seq      atomic.Int64
}

// New builds a Batcher with the given debounce window and round function.
func New[P, R any](debounce time.Duration, run RoundFunc[P, R]) *Batcher[P, R] {
	return &Batcher[P, R]{
		debounce: debounce,
		run:      run,
	}
}

// NextSeq returns the next monotonic sequence id for this batcher.
func (b *Batcher[P, R]) NextSeq() int64 {
	return b.seq.Add(1)
}

// Do registers the payload under seq, waits out the round's debounce window,
// and returns this registration's result once the round has run. The context
// is passed through to the round function; cancellation while waiting on a
// result returns ctx.Err() without disturbing the rest of the round.
func (b *Batcher[P, R]) Do(ctx context.Context, seq int64, payload P) (R, error) {
	reg := &registration[P, R]{
		seq:     seq,
		payload: payload,
		result:  make(chan R, 1),
	}

	b.mu.Lock()
	rd := b.current
	if rd == nil {
		rd = &round[P, R]{barrier: make(chan struct{})}
		b.current = rd
		time.AfterFunc(b.debounce, func() { close(rd.barrier) })
	}
	rd.regs = append(rd.regs, reg)
	b.mu.Unlock()

	// The barrier is the grace period: everything registering close enough
	// in time lands in the same round before anyone proceeds.
	<-rd.barrier

	b.mu.Lock()
	if !rd.drained && rd.minSeq() == reg {
		rd.drained = true
		if b.current == rd {
			b.current = nil
		}
		regs := rd.regs
		b.mu.Unlock()
		b.drain(ctx, regs)
	} else {
		b.mu.Unlock()
	}

	select {
	case res := <-reg.result:
		return res, nil
	case <-ctx.Done():
		// The round may have completed in the same instant; a delivered
		// result wins over the cancellation.
		select {
		case res := <-reg.result:
			return res, nil
		default:
		}
		var zero R
		return zero, ctx.Err()
	}
}

// minSeq returns the registration holding the minimum sequence id.
func (r *round[P, R]) minSeq() *registration[P, R] {
	min := r.regs[0]
	for _, reg := range r.regs[1:] {
		if reg.seq < min.seq {
			min = reg
		}
	}
	return min
}

// drain runs the round function once and delivers each registrant's result.
// Result channels are buffered, so delivery never blocks on a registrant
// that already gave up.
func (b *Batcher[P, R]) drain(ctx context.Context, regs []*registration[P, R]) {
	sort.Slice(regs, func(i, j int) bool { return regs[i].seq < regs[j].seq })

	payloads := make([]P, len(regs))
	for i, reg := range regs {
		payloads[i] = reg.payload
	}

	batcherLog.WithField("size", len(regs)).Debug("draining round")
	results := b.run(ctx, payloads)

	for i, reg := range regs {
		if i < len(results) {
			reg.result <- results[i]
		}
	}
}
