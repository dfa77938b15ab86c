package provision

import (
	"context"
	"time"

	"github.com/storeward/storeward/pkg/domain"
	xe "github.com/storeward/storeward/pkg/errors"
	"github.com/storeward/storeward/pkg/loop"
)

const (
	recoverRetryInterval = 2 * time.Second
	recoverRetryLimit    = 5
)

// Recover re-enqueues every store a previous process left mid-flight.
// Run it once, after Start and before the API starts accepting requests.
//
// A PROVISIONING store goes back through the install path; whether the
// release must be installed or just waited for is decided there, against
// the cluster. A DELETING store goes back through teardown, which is
// idempotent throughout.
//
// The listing is retried a few times: at boot the database may still be
// settling, and failing the whole daemon for one hiccup helps nobody.
func (m *Manager) Recover(ctx context.Context) error {
	attempt := 0
	stores, err := loop.Start(
		ctx, []domain.Store(nil),
		func(ctx context.Context, _ []domain.Store) ([]domain.Store, loop.Next) {
			stores, err := m.store.ListNonTerminal(ctx)
			if err != nil {
				attempt += 1
				if attempt >= recoverRetryLimit {
					return nil, loop.Break(err)
				}
				m.logger.Warnf("recovery: cannot list stores (attempt %d), retrying: %v", attempt, err)
				return nil, loop.Continue(recoverRetryInterval)
			}
			return stores, loop.Break(nil)
		},
	)
	if err != nil {
		return xe.WrapWithNote("recovery: cannot list stores", err)
	}

	for _, s := range stores {
		switch s.Status {
		case domain.Provisioning:
			m.logger.Infof("recovery: resuming provisioning of %s", s.Id)
			m.EnqueueInstall(s.Id)
		case domain.Deleting:
			m.logger.Infof("recovery: resuming teardown of %s", s.Id)
			m.EnqueueTeardown(s.Id)
		}
	}
	return nil
}
