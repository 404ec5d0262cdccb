package utils

import (
	"context"
	"sync"

	goutils "go.viam.com/utils"
)

// StoppableWorkers runs background goroutines that share one cancellable context and can all
// be stopped together.
type StoppableWorkers interface {
	AddWorkers(...func(context.Context))
	Stop()
	Context() context.Context
}

// workers is returned by pointer only, since it holds a WaitGroup.
type workers struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStoppableWorkers starts each function on its own goroutine.
func NewStoppableWorkers(funcs ...func(context.Context)) StoppableWorkers {
	return NewStoppableWorkersWithContext(context.Background(), funcs...)
}

// NewStoppableWorkersWithContext is NewStoppableWorkers with the workers' context derived from
// ctx. Cancelling ctx stops the workers too.
func NewStoppableWorkersWithContext(ctx context.Context, funcs ...func(context.Context)) StoppableWorkers {
	w := &workers{}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.AddWorkers(funcs...)
	return w
}

// AddWorkers starts more goroutines. After Stop it does nothing.
func (w *workers) AddWorkers(funcs ...func(context.Context)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx.Err() != nil {
		return
	}
	for _, f := range funcs {
		w.wg.Add(1)
		// A panicking worker is logged and counted as finished.
		goutils.PanicCapturingGo(func() {
			defer w.wg.Done()
			f(w.ctx)
		})
	}
}

// Stop cancels the shared context and waits for every worker to return.
func (w *workers) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancel()
	w.wg.Wait()
}

// Context is the context handed to every worker.
func (w *workers) Context() context.Context {
	return w.ctx
}
