package domain

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

type StoreStatus string

const (
	// The store record exists and the worker is driving Helm/Kubernetes
	// until the workload converges.
	Provisioning StoreStatus = "PROVISIONING"

	// The workload is up: pods ready, setup job succeeded, ingress routed.
	Ready StoreStatus = "READY"

	// Provisioning reached a terminal failure. FailureReason is set.
	Failed StoreStatus = "FAILED"

	// Deletion has been requested; the worker is tearing the release down.
	Deleting StoreStatus = "DELETING"

	// The release and namespace are gone. The row is kept as an audit record.
	Deleted StoreStatus = "DELETED"
)

func (s StoreStatus) String() string {
	return string(s)
}

func AsStoreStatus(status string) (StoreStatus, error) {
	switch status {
	case string(Provisioning):
		return Provisioning, nil
	case string(Ready):
		return Ready, nil
	case string(Failed):
		return Failed, nil
	case string(Deleting):
		return Deleting, nil
	case string(Deleted):
		return Deleted, nil
	}
	return StoreStatus(""), fmt.Errorf("unknown store status: %s", status)
}

// statuses which the recovery controller re-enqueues on boot.
func NonTerminalStatuses() []StoreStatus {
	return []StoreStatus{Provisioning, Deleting}
}

// CanTransitTo reports whether `from -> to` is an edge of the lifecycle graph.
//
//	PROVISIONING -> READY | FAILED
//	READY        -> DELETING
//	FAILED       -> DELETING
//	DELETING     -> DELETED
//
// DELETED is final. Nothing moves into PROVISIONING after creation.
func (s StoreStatus) CanTransitTo(to StoreStatus) bool {
	switch s {
	case Provisioning:
		return to == Ready || to == Failed
	case Ready, Failed:
		return to == Deleting
	case Deleting:
		return to == Deleted
	}
	return false
}

var (
	ErrStoreNameConflict       = errors.New("store name is already in use")
	ErrInvalidStore            = errors.New("invalid store")
	ErrInvalidStoreStateChange = errors.New("cannot change store state")
)

func NewErrInvalidStoreStateChange(from, to StoreStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStoreStateChange, from, to)
}

type StoreEngine string

const (
	WooCommerce StoreEngine = "woocommerce"
	Medusa      StoreEngine = "medusa"
)

func (e StoreEngine) String() string {
	return string(e)
}

func AsStoreEngine(engine string) (StoreEngine, error) {
	switch engine {
	case string(WooCommerce):
		return WooCommerce, nil
	case string(Medusa):
		return Medusa, nil
	}
	return StoreEngine(""), fmt.Errorf(
		"%w: unknown engine %q (one of: %s, %s)",
		ErrInvalidStore, engine, WooCommerce, Medusa,
	)
}

// AdminCredentials are passed through to the Helm chart.
// Password is write-only towards the API: it never appears in responses.
type AdminCredentials struct {
	Username string
	Email    string
	Password string
}

// DBCredentials are generated server-side at creation and handed to the
// chart so the store's database comes up with known credentials.
type DBCredentials struct {
	Name         string
	Username     string
	Password     string
	RootPassword string
}

func NewDBCredentials() DBCredentials {
	return DBCredentials{
		Name:         "store",
		Username:     "store",
		Password:     randomHex(16),
		RootPassword: randomHex(16),
	}
}

// Store is the one persisted entity: intent plus the last observed terminal
// outcome. Live cluster state is never cached here.
type Store struct {
	// Id is also the Helm release name. Immutable.
	Id string

	Name   string
	Engine StoreEngine

	// Namespace == "store-" + Id. Immutable.
	Namespace string

	// HelmRelease == Id. Immutable.
	HelmRelease string

	Status StoreStatus

	// StoreURL is set iff Status == READY.
	StoreURL string

	// FailureReason is set iff Status == FAILED.
	FailureReason string

	Admin AdminCredentials
	DB    DBCredentials

	CreatedAt time.Time
	UpdatedAt time.Time
}

var storeNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,48}[a-z0-9]$`)

func ValidateStoreName(name string) error {
	if !storeNamePattern.MatchString(name) {
		return fmt.Errorf(
			"%w: name %q must match %s",
			ErrInvalidStore, name, storeNamePattern.String(),
		)
	}
	return nil
}

// NewStoreId derives a release-safe identifier: the user name plus an
// 8-character random suffix. Collisions are vanishingly rare but the caller
// retries insertion anyway.
func NewStoreId(name string) string {
	u := uuid.New()
	return name + "-" + hex.EncodeToString(u[:])[:8]
}

func NamespaceOf(storeId string) string {
	return "store-" + storeId
}

// DomainOf is the hostname the chart should route: <name>.<baseDomain>.
func DomainOf(name string, baseDomain string) string {
	return name + "." + baseDomain
}

func randomHex(n int) string {
	u := uuid.New()
	h := hex.EncodeToString(u[:])
	if n < len(h) {
		return h[:n]
	}
	return h
}
