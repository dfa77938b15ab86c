// Package provision drives stores from intent to workload: it owns the
// queue of pending installs and teardowns, a bounded pool of workers
// draining it, and the boot-time recovery of tasks a previous process
// left behind.
package provision

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/gommon/log"

	kdb "github.com/storeward/storeward/pkg/domain/store/db"
	"github.com/storeward/storeward/pkg/workloads/helm"
	"github.com/storeward/storeward/pkg/workloads/k8s"
)

type Config struct {
	// Suffix of every store's public hostname.
	BaseDomain string

	// store urls are https iff true.
	TLSEnabled bool

	// Readiness budget of one store, counted after `helm install` returns.
	Timeout time.Duration

	PollInterval time.Duration

	// Number of workers draining the queue. The queue itself is unbounded;
	// this caps how many stores are in flight at once.
	MaxWorkers int
}

type taskKind int

const (
	taskInstall taskKind = iota
	taskTeardown
)

type task struct {
	kind    taskKind
	storeId string
}

type Manager struct {
	store  kdb.StoreInterface
	helm   helm.Executor
	probe  k8s.Probe
	conf   Config
	logger *log.Logger

	mu     sync.Mutex
	queue  []task
	signal chan struct{}

	wg sync.WaitGroup
}

func New(
	store kdb.StoreInterface,
	helmExec helm.Executor,
	probe k8s.Probe,
	conf Config,
	logger *log.Logger,
) *Manager {
	return &Manager{
		store:  store,
		helm:   helmExec,
		probe:  probe,
		conf:   conf,
		logger: logger,
		signal: make(chan struct{}, 1),
	}
}

// Start spawns the worker pool. Workers stop when ctx is done; tasks still
// queued (or half-done) are picked up by Recover at the next boot, because
// their stores stay in a non-terminal status.
func (m *Manager) Start(ctx context.Context) {
	for i := 0; i < m.conf.MaxWorkers; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.work(ctx)
		}()
	}
}

// Wait blocks until all workers have returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// EnqueueInstall schedules provisioning of the store. The worker verifies
// the store is still PROVISIONING before acting, so stale enqueues are
// harmless.
func (m *Manager) EnqueueInstall(storeId string) {
	m.enqueue(task{kind: taskInstall, storeId: storeId})
}

// EnqueueTeardown schedules removal of the store's release and namespace.
func (m *Manager) EnqueueTeardown(storeId string) {
	m.enqueue(task{kind: taskTeardown, storeId: storeId})
}

func (m *Manager) enqueue(t task) {
	m.mu.Lock()
	m.queue = append(m.queue, t)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *Manager) work(ctx context.Context) {
	for {
		t, ok := m.dequeue(ctx)
		if !ok {
			return
		}
		switch t.kind {
		case taskInstall:
			m.runInstall(ctx, t.storeId)
		case taskTeardown:
			m.runTeardown(ctx, t.storeId)
		}
	}
}

func (m *Manager) dequeue(ctx context.Context) (task, bool) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			t := m.queue[0]
			m.queue = m.queue[1:]
			if len(m.queue) > 0 {
				// wake another worker for the rest.
				select {
				case m.signal <- struct{}{}:
				default:
				}
			}
			m.mu.Unlock()
			return t, true
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return task{}, false
		case <-m.signal:
		}
	}
}
