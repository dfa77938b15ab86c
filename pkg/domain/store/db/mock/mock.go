package mock

import (
	"context"

	"github.com/storeward/storeward/pkg/domain"
	kdb "github.com/storeward/storeward/pkg/domain/store/db"
	"github.com/storeward/storeward/pkg/utils/mocks"
)

type UpdateStatusCall struct {
	StoreId string
	Change  kdb.StatusChange
}

type StoreStore struct {
	Impl struct {
		Create          func(ctx context.Context, spec kdb.NewStore) (domain.Store, error)
		Get             func(ctx context.Context, storeId string) (domain.Store, error)
		List            func(ctx context.Context) ([]domain.Store, error)
		UpdateStatus    func(ctx context.Context, storeId string, change kdb.StatusChange) error
		ListNonTerminal func(ctx context.Context) ([]domain.Store, error)
	}
	Calls struct {
		Create          mocks.CallLog[kdb.NewStore]
		Get             mocks.CallLog[string]
		List            mocks.CallLog[struct{}]
		UpdateStatus    mocks.CallLog[UpdateStatusCall]
		ListNonTerminal mocks.CallLog[struct{}]
	}
}

var _ kdb.StoreInterface = &StoreStore{}

func NewStoreStore() *StoreStore {
	return &StoreStore{}
}

func (m *StoreStore) Create(ctx context.Context, spec kdb.NewStore) (domain.Store, error) {
	m.Calls.Create = append(m.Calls.Create, spec)
	if m.Impl.Create != nil {
		return m.Impl.Create(ctx, spec)
	}
	panic("it should not be called")
}

func (m *StoreStore) Get(ctx context.Context, storeId string) (domain.Store, error) {
	m.Calls.Get = append(m.Calls.Get, storeId)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, storeId)
	}
	panic("it should not be called")
}

func (m *StoreStore) List(ctx context.Context) ([]domain.Store, error) {
	m.Calls.List = append(m.Calls.List, struct{}{})
	if m.Impl.List != nil {
		return m.Impl.List(ctx)
	}
	panic("it should not be called")
}

func (m *StoreStore) UpdateStatus(ctx context.Context, storeId string, change kdb.StatusChange) error {
	m.Calls.UpdateStatus = append(m.Calls.UpdateStatus, UpdateStatusCall{StoreId: storeId, Change: change})
	if m.Impl.UpdateStatus != nil {
		return m.Impl.UpdateStatus(ctx, storeId, change)
	}
	panic("it should not be called")
}

func (m *StoreStore) ListNonTerminal(ctx context.Context) ([]domain.Store, error) {
	m.Calls.ListNonTerminal = append(m.Calls.ListNonTerminal, struct{}{})
	if m.Impl.ListNonTerminal != nil {
		return m.Impl.ListNonTerminal(ctx)
	}
	panic("it should not be called")
}
