package shell

import (
	"context"
	"errors"
	"sync"

	"github.com/toxikkmodding/toxikk-launcher/logging"
)

// restartWorker runs restarts in the background. A newer request for the same
// server cancels the pending one. Restarts of different servers run one at a time.
type restartWorker struct {
	run func(ctx context.Context, id string) error
	log *logging.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup

	// serial keeps two restarts from stopping and deploying at the same time
	serial sync.Mutex
}

func newRestartWorker(run func(ctx context.Context, id string) error, log *logging.Logger) *restartWorker {
	return &restartWorker{
		run:     run,
		log:     log,
		cancels: make(map[string]context.CancelFunc),
	}
}

// Request schedules a restart of id
func (w *restartWorker) Request(id string) {
	ctx, cancel := context.WithCancel(context.Background())

	w.mu.Lock()
	if previous, ok := w.cancels[id]; ok {
		previous()
	}
	w.cancels[id] = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.finish(ctx, id, cancel)

		w.serial.Lock()
		defer w.serial.Unlock()
		if ctx.Err() != nil {
			return
		}
		if err := w.run(ctx, id); err != nil && !errors.Is(err, context.Canceled) {
			w.log.Errorf(logging.DestinationProcess, "restart of %s failed: %v", id, err)
		}
	}()
}

// finish forgets the cancel func of id unless a newer request replaced it
func (w *restartWorker) finish(ctx context.Context, id string, cancel context.CancelFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ctx.Err() == nil {
		delete(w.cancels, id)
	}
	cancel()
}

// Wait blocks until every requested restart has finished
func (w *restartWorker) Wait() {
	w.wg.Wait()
}
