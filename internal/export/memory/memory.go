// Package memory is an in-process ReportWriter for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"saldo/internal/core"
)

type Recorder struct {
	mu    sync.Mutex
	items []core.Settlement
}

func New() *Recorder {
	return &Recorder{}
}

// WriteSettlement records the settlement and returns a synthetic reference.
func (r *Recorder) WriteSettlement(_ context.Context, st core.Settlement) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, st)
	return fmt.Sprintf("mem:%d", len(r.items)), nil
}

// Written returns a copy of everything recorded so far.
func (r *Recorder) Written() []core.Settlement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Settlement(nil), r.items...)
}
