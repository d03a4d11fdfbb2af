package game

import "context"

// EventLoop is the single goroutine that owns a Game and its
// connection-facing mutations (spec.md §5), implemented with Go's
// standard select-loop idiom rather than OS threads, grounded on the
// channel-driven Run() of the roulettify example's GameRoom
// (other_examples/80dac446_mardon3-roulettify__internal-game-room.go.go).
// Unlike that example's typed per-action channels, commands here are
// posted as closures — RoundEvent, SubmissionEvent, and AdminCommand
// all reduce to "a function that touches *Game", letting WSHub,
// round timers, and grace-period timers share one funnel.
type EventLoop struct {
	game *Game
	cmds chan func()
	done chan struct{}
}

// NewEventLoop wraps g and wires its timer/grace callbacks to post
// through the loop instead of calling Game methods from arbitrary
// goroutines.
func NewEventLoop(g *Game) *EventLoop {
	el := &EventLoop{game: g, cmds: make(chan func(), 64), done: make(chan struct{})}
	g.SetPoster(el.post)
	return el
}

// Game returns the owned Game. Callers outside Run/Do must not mutate
// it directly — route through Do.
func (el *EventLoop) Game() *Game { return el.game }

func (el *EventLoop) post(fn func()) {
	select {
	case el.cmds <- fn:
	case <-el.done:
	}
}

// Run drains posted commands serially until ctx is cancelled.
func (el *EventLoop) Run(ctx context.Context) {
	for {
		select {
		case fn := <-el.cmds:
			fn()
		case <-ctx.Done():
			close(el.done)
			return
		}
	}
}

// Do posts fn to the loop and blocks until it has run, giving a
// WSHub handler a synchronous call into Game despite the
// single-goroutine ownership rule. Must not be called from within the
// loop goroutine itself (e.g. from inside a Do callback) — it would
// deadlock. A panic in fn is recovered on the loop goroutine and
// raised again on the caller's goroutine.
func (el *EventLoop) Do(fn func()) {
	done := make(chan struct{})
	var panicked any
	el.post(func() {
		defer func() {
			panicked = recover()
			close(done)
		}()
		fn()
	})
	select {
	case <-done:
	case <-el.done:
		return
	}
	if panicked != nil {
		panic(panicked)
	}
}
