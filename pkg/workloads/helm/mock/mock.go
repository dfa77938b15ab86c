package mock

import (
	"context"
	"errors"

	"github.com/storeward/storeward/pkg/utils/mocks"
	"github.com/storeward/storeward/pkg/workloads/helm"
)

type ReleaseRef struct {
	Release   string
	Namespace string
}

type Executor struct {
	Impl struct {
		Install       func(ctx context.Context, install helm.Installation) error
		Uninstall     func(ctx context.Context, release string, namespace string) error
		ReleaseStatus func(ctx context.Context, release string, namespace string) (string, bool, error)
		ReleaseExists func(ctx context.Context, release string, namespace string) (bool, error)
	}

	Calls struct {
		Install       mocks.CallLog[helm.Installation]
		Uninstall     mocks.CallLog[ReleaseRef]
		ReleaseStatus mocks.CallLog[ReleaseRef]
		ReleaseExists mocks.CallLog[ReleaseRef]
	}
}

func New() *Executor {
	return &Executor{}
}

var _ helm.Executor = &Executor{}

func (m *Executor) Install(ctx context.Context, install helm.Installation) error {
	m.Calls.Install = append(m.Calls.Install, install)
	if m.Impl.Install != nil {
		return m.Impl.Install(ctx, install)
	}
	panic(errors.New("it should not be called"))
}

func (m *Executor) Uninstall(ctx context.Context, release string, namespace string) error {
	m.Calls.Uninstall = append(m.Calls.Uninstall, ReleaseRef{Release: release, Namespace: namespace})
	if m.Impl.Uninstall != nil {
		return m.Impl.Uninstall(ctx, release, namespace)
	}
	panic(errors.New("it should not be called"))
}

func (m *Executor) ReleaseStatus(ctx context.Context, release string, namespace string) (string, bool, error) {
	m.Calls.ReleaseStatus = append(m.Calls.ReleaseStatus, ReleaseRef{Release: release, Namespace: namespace})
	if m.Impl.ReleaseStatus != nil {
		return m.Impl.ReleaseStatus(ctx, release, namespace)
	}
	panic(errors.New("it should not be called"))
}

func (m *Executor) ReleaseExists(ctx context.Context, release string, namespace string) (bool, error) {
	m.Calls.ReleaseExists = append(m.Calls.ReleaseExists, ReleaseRef{Release: release, Namespace: namespace})
	if m.Impl.ReleaseExists != nil {
		return m.Impl.ReleaseExists(ctx, release, namespace)
	}
	panic(errors.New("it should not be called"))
}
