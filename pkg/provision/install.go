package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/storeward/storeward/pkg/domain"
	kdb "github.com/storeward/storeward/pkg/domain/store/db"
	"github.com/storeward/storeward/pkg/loop"
	"github.com/storeward/storeward/pkg/workloads/helm"
	"github.com/storeward/storeward/pkg/workloads/k8s"
)

// chartValues composes the dynamic `--set` values of one store install.
// Everything else the chart needs sits in the static values files.
func chartValues(store domain.Store, baseDomain string) map[string]string {
	return map[string]string{
		"store.id":        store.Id,
		"store.name":      store.Name,
		"store.namespace": store.Namespace,
		"store.engine":    store.Engine.String(),
		"store.domain":    domain.DomainOf(store.Name, baseDomain),
		"admin.username":  store.Admin.Username,
		"admin.email":     store.Admin.Email,
		"admin.password":  store.Admin.Password,
		"db.name":         store.DB.Name,
		"db.username":     store.DB.Username,
		"db.password":     store.DB.Password,
		"db.rootPassword": store.DB.RootPassword,
	}
}

// setupJobName is the name the chart gives the one-shot store setup job.
func setupJobName(store domain.Store) string {
	return store.Id + "-" + store.Engine.String() + "-setup"
}

func (m *Manager) runInstall(ctx context.Context, storeId string) {
	store, err := m.store.Get(ctx, storeId)
	if err != nil {
		m.logger.Errorf("install %s: cannot load store: %+v", storeId, err)
		return
	}
	if store.Status != domain.Provisioning {
		// deleted (or already settled) while queued. Nothing to do.
		m.logger.Debugf("install %s: skipped, status is %s", storeId, store.Status)
		return
	}

	// A release left by a crashed predecessor means the install already
	// happened; go straight to waiting. When the existence check itself
	// fails we install blind and let ErrAlreadyExists disambiguate.
	exists, err := m.helm.ReleaseExists(ctx, store.HelmRelease, store.Namespace)
	if err != nil {
		m.logger.Warnf("install %s: release check failed, installing blind: %v", storeId, err)
		exists = false
	}

	if !exists {
		err := m.helm.Install(ctx, helm.Installation{
			Release:   store.HelmRelease,
			Namespace: store.Namespace,
			Values:    chartValues(store, m.conf.BaseDomain),
		})
		if err != nil && !errors.Is(err, helm.ErrAlreadyExists) {
			if ctx.Err() != nil {
				return // shutting down; stays PROVISIONING for recovery
			}
			m.fail(ctx, store, fmt.Sprintf("Helm install failed: %s", err))
			return
		}
		m.logger.Infof("install %s: release %s installed, waiting for readiness", storeId, store.HelmRelease)
	} else {
		m.logger.Infof("install %s: release %s already present, resuming wait", storeId, store.HelmRelease)
	}

	m.awaitReady(ctx, store)
}

// awaitReady polls the cluster until the store serves, breaks, or the
// budget runs out. Transient cluster errors cost a tick, nothing more.
func (m *Manager) awaitReady(ctx context.Context, store domain.Store) {
	deadline, cancel := context.WithTimeout(ctx, m.conf.Timeout)
	defer cancel()

	selector := k8s.ReleaseSelector(store.HelmRelease)
	setupJob := setupJobName(store)

	host, err := loop.Start(deadline, "", func(ctx context.Context, _ string) (string, loop.Next) {
		pods, err := m.probe.PodsReady(ctx, store.Namespace, selector)
		if err != nil {
			if k8s.IsTransient(err) {
				return "", loop.Continue(m.conf.PollInterval)
			}
			return "", loop.Break(err)
		}
		if pods.AnyFailed {
			return "", loop.Break(errors.New(pods.Reason))
		}

		job, err := m.probe.JobStatus(ctx, store.Namespace, setupJob)
		if err != nil {
			if k8s.IsTransient(err) {
				return "", loop.Continue(m.conf.PollInterval)
			}
			return "", loop.Break(err)
		}
		if job == k8s.JobFailed {
			return "", loop.Break(fmt.Errorf("setup job %s failed", setupJob))
		}

		if pods.Total == 0 || pods.Ready < pods.Total || job != k8s.JobSucceeded {
			return "", loop.Continue(m.conf.PollInterval)
		}

		host, err := m.probe.IngressHost(ctx, store.Namespace, selector)
		if err != nil {
			if k8s.IsTransient(err) {
				return "", loop.Continue(m.conf.PollInterval)
			}
			return "", loop.Break(err)
		}
		if host == "" {
			return "", loop.Continue(m.conf.PollInterval)
		}
		return host, loop.Break(nil)
	})

	if err != nil {
		if ctx.Err() != nil {
			// daemon shutdown, not a store failure. Recovery resumes it.
			return
		}
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = fmt.Sprintf("Provisioning timed out after %s", m.conf.Timeout)
		}
		m.fail(ctx, store, reason)
		return
	}

	scheme := "http"
	if m.conf.TLSEnabled {
		scheme = "https"
	}
	storeURL := scheme + "://" + host

	change := kdb.StatusChange{NewStatus: domain.Ready, StoreURL: storeURL}
	if err := m.store.UpdateStatus(ctx, store.Id, change); err != nil {
		if errors.Is(err, domain.ErrInvalidStoreStateChange) {
			// a delete raced us; the teardown task owns the store now.
			m.logger.Infof("install %s: became ready but state moved on: %v", store.Id, err)
			return
		}
		m.logger.Errorf("install %s: cannot record READY: %+v", store.Id, err)
		return
	}
	m.logger.Infof("install %s: READY at %s", store.Id, storeURL)
}

func (m *Manager) fail(ctx context.Context, store domain.Store, reason string) {
	change := kdb.StatusChange{NewStatus: domain.Failed, FailureReason: reason}
	if err := m.store.UpdateStatus(ctx, store.Id, change); err != nil {
		if errors.Is(err, domain.ErrInvalidStoreStateChange) {
			m.logger.Infof("install %s: failed (%s) but state moved on: %v", store.Id, reason, err)
			return
		}
		m.logger.Errorf("install %s: cannot record FAILED (%s): %+v", store.Id, reason, err)
		return
	}
	m.logger.Warnf("install %s: FAILED: %s", store.Id, reason)
}
