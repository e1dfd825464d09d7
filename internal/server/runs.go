package server

import (
	"sync"
	"time"

	"github.com/goforj/cachestorage/internal/logsink"
	"github.com/goforj/cachestorage/internal/stress"
	"github.com/google/uuid"
)

// maxRetainedRuns bounds the registry; the oldest finished run is evicted first.
const maxRetainedRuns = 32

type run struct {
	id      uuid.UUID
	started time.Time
	log     *logsink.Buffer
	launch  *stress.Launch
}

func (r *run) done() bool {
	select {
	case <-r.launch.Run.Done():
	default:
		return false
	}
	select {
	case <-r.launch.Probe.Done():
		return true
	default:
		return false
	}
}

type registry struct {
	mu    sync.Mutex
	order []uuid.UUID
	byID  map[uuid.UUID]*run
}

func newRegistry() *registry {
	return &registry{byID: make(map[uuid.UUID]*run)}
}

func (r *registry) add(rn *run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rn.id] = rn
	r.order = append(r.order, rn.id)
	for len(r.order) > maxRetainedRuns {
		evicted := false
		for i, id := range r.order {
			if r.byID[id].done() {
				delete(r.byID, id)
				r.order = append(r.order[:i], r.order[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			return
		}
	}
}

func (r *registry) get(id uuid.UUID) (*run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn, ok := r.byID[id]
	return rn, ok
}

func (r *registry) list() []*run {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*run, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
