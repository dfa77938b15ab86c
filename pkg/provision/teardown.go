package provision

import (
	"context"

	"github.com/storeward/storeward/pkg/domain"
	kdb "github.com/storeward/storeward/pkg/domain/store/db"
	"github.com/storeward/storeward/pkg/loop"
)

// runTeardown removes the release and namespace, then records DELETED.
//
// Teardown never moves a store to FAILED; DELETING is not on that edge.
// When the budget runs out the store simply stays DELETING and recovery
// retries it at the next boot.
func (m *Manager) runTeardown(ctx context.Context, storeId string) {
	store, err := m.store.Get(ctx, storeId)
	if err != nil {
		m.logger.Errorf("teardown %s: cannot load store: %+v", storeId, err)
		return
	}
	if store.Status != domain.Deleting {
		m.logger.Debugf("teardown %s: skipped, status is %s", storeId, store.Status)
		return
	}

	deadline, cancel := context.WithTimeout(ctx, m.conf.Timeout)
	defer cancel()

	_, err = loop.Start(deadline, struct{}{}, func(ctx context.Context, v struct{}) (struct{}, loop.Next) {
		if err := m.helm.Uninstall(ctx, store.HelmRelease, store.Namespace); err != nil {
			m.logger.Warnf("teardown %s: uninstall failed, retrying: %v", storeId, err)
			return v, loop.Continue(m.conf.PollInterval)
		}

		// best effort: the namespace holds nothing once the release is
		// gone, and a leftover one is cleaned up on a later attempt.
		if err := m.probe.DeleteNamespace(ctx, store.Namespace); err != nil {
			m.logger.Warnf("teardown %s: namespace delete failed: %v", storeId, err)
		}
		return v, loop.Break(nil)
	})
	if err != nil {
		m.logger.Errorf("teardown %s: giving up for now, retried at next boot: %+v", storeId, err)
		return
	}

	change := kdb.StatusChange{NewStatus: domain.Deleted}
	if err := m.store.UpdateStatus(ctx, store.Id, change); err != nil {
		m.logger.Errorf("teardown %s: cannot record DELETED: %+v", storeId, err)
		return
	}
	m.logger.Infof("teardown %s: DELETED", storeId)
}
