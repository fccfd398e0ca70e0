package reconcile

import (
	"context"
	"log"
	"sync"
)

// Runner serializes reconciliation passes. Triggers arriving while a pass
// is in flight coalesce into a single queued pass: the trigger channel has
// one slot, so at most one pass runs and at most one waits.
type Runner struct {
	coord   *Coordinator
	trigger chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  *log.Logger

	// onPass, when set, receives each completed pass's counters.
	onPass func(Counters)
}

// NewRunner creates a Runner for the given coordinator. onPass may be nil.
func NewRunner(coord *Coordinator, onPass func(Counters), logger *log.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		coord:   coord,
		trigger: make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
		onPass:  onPass,
	}
}

// Start begins the pass loop.
func (r *Runner) Start() {
	r.wg.Add(1)
	go r.run()
}

// Trigger requests a pass. Non-blocking: if a pass is already queued the
// request coalesces into it.
func (r *Runner) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Stop prevents further passes from starting and waits for any pass in
// flight to finish. It never aborts a running pass.
func (r *Runner) Stop() {
	r.cancel()
	r.wg.Wait()
}

func (r *Runner) run() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.trigger:
			// Re-check shutdown: Stop must win over a queued trigger.
			if r.ctx.Err() != nil {
				return
			}
			counters := r.coord.Pass()
			r.logger.Printf("Pass complete: created=%d renamed=%d archived=%d status_fixed=%d failures=%d",
				counters.ThreadsCreated, counters.NamesUpdated, counters.ThreadsArchived,
				counters.StatusFixed, counters.Failures)
			if r.onPass != nil {
				r.onPass(counters)
			}
		}
	}
}
