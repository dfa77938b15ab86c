package db

import (
	"context"
	"errors"

	"github.com/storeward/storeward/pkg/domain"
)

// requested store is not found.
var ErrMissing = errors.New("store is missing")

// NewStore is what the API layer knows when a store is requested.
// Identity (id, namespace, release) and db credentials are derived inside
// Create; callers never choose them.
type NewStore struct {
	Name   string
	Engine domain.StoreEngine
	Admin  domain.AdminCredentials
}

// StatusChange carries the payload of a status transition.
//
// StoreURL is required (and only allowed) when NewStatus is READY;
// FailureReason is required (and only allowed) when NewStatus is FAILED.
// The implementation sets or clears both columns on every transition.
type StatusChange struct {
	NewStatus     domain.StoreStatus
	StoreURL      string
	FailureReason string
}

// StoreInterface is the Store Store: the single owner of persisted store
// state. Every method is one transaction; none of them call out to Helm or
// Kubernetes.
type StoreInterface interface {
	// Create inserts a new store in PROVISIONING state.
	//
	// Returns
	//
	// - domain.Store: the created record, with derived id, namespace,
	// helm release and generated db credentials.
	//
	// - error: domain.ErrStoreNameConflict when another non-DELETED store
	// holds the name; domain.ErrInvalid on constraint violations.
	Create(ctx context.Context, spec NewStore) (domain.Store, error)

	// Get returns the store for the id, or ErrMissing.
	Get(ctx context.Context, storeId string) (domain.Store, error)

	// List returns all stores, newest first.
	List(ctx context.Context) ([]domain.Store, error)

	// UpdateStatus transits the store atomically along the lifecycle graph.
	//
	// Returns domain.ErrInvalidStoreStateChange when the transition is not
	// an edge of the graph, ErrMissing when the store does not exist.
	UpdateStatus(ctx context.Context, storeId string, change StatusChange) error

	// ListNonTerminal returns stores in PROVISIONING or DELETING state.
	// Used by the recovery controller only.
	ListNonTerminal(ctx context.Context) ([]domain.Store, error)
}
