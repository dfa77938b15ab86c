package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	apierr "github.com/storeward/storeward/pkg/api/types/errors"
	apistores "github.com/storeward/storeward/pkg/api/types/stores"
	"github.com/storeward/storeward/pkg/domain"
	kdb "github.com/storeward/storeward/pkg/domain/store/db"
)

// Enqueuer is what handlers need from the provisioning manager.
type Enqueuer interface {
	EnqueueInstall(storeId string)
	EnqueueTeardown(storeId string)
}

// CreateStoreHandler accepts a store request, records it PROVISIONING and
// hands it to the worker. The response is 202: provisioning is always
// asynchronous.
func CreateStoreHandler(dbStore kdb.StoreInterface, worker Enqueuer) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		spec := apistores.StoreSpec{}
		decoder := json.NewDecoder(c.Request().Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&spec); err != nil {
			return apierr.NewErrorMessage(
				http.StatusBadRequest,
				"format error",
				apierr.WithAdvice(err.Error()),
				apierr.WithError(err),
			)
		}

		newStore, err := validateSpec(spec)
		if err != nil {
			return apierr.BadRequest(err.Error(), err)
		}

		created, err := dbStore.Create(ctx, newStore)
		if err != nil {
			if errors.Is(err, domain.ErrStoreNameConflict) {
				return apierr.Conflict(
					fmt.Sprintf("store name %q is already in use", spec.Name),
				)
			}
			if errors.Is(err, domain.ErrInvalidStore) {
				return apierr.BadRequest(err.Error(), err)
			}
			return apierr.InternalServerError(err)
		}

		worker.EnqueueInstall(created.Id)

		return c.JSON(http.StatusAccepted, apistores.ComposeDetail(created))
	}
}

// validateSpec checks what the store layer cannot: field presence and
// shape of the credentials. Name and engine are re-validated there too.
func validateSpec(spec apistores.StoreSpec) (kdb.NewStore, error) {
	if err := domain.ValidateStoreName(spec.Name); err != nil {
		return kdb.NewStore{}, err
	}
	engine, err := domain.AsStoreEngine(spec.Engine)
	if err != nil {
		return kdb.NewStore{}, err
	}
	if spec.AdminUsername == "" {
		return kdb.NewStore{}, fmt.Errorf("%w: admin_username is required", domain.ErrInvalidStore)
	}
	if !strings.Contains(spec.AdminEmail, "@") {
		return kdb.NewStore{}, fmt.Errorf("%w: admin_email is not an email address", domain.ErrInvalidStore)
	}
	if len(spec.AdminPassword) < 8 {
		return kdb.NewStore{}, fmt.Errorf("%w: admin_password must be at least 8 characters", domain.ErrInvalidStore)
	}

	return kdb.NewStore{
		Name:   spec.Name,
		Engine: engine,
		Admin: domain.AdminCredentials{
			Username: spec.AdminUsername,
			Email:    spec.AdminEmail,
			Password: spec.AdminPassword,
		},
	}, nil
}

func GetStoreHandler(dbStore kdb.StoreInterface, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		storeId := c.Param(paramKey)

		store, err := dbStore.Get(ctx, storeId)
		if err != nil {
			if errors.Is(err, kdb.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}

		return c.JSON(http.StatusOK, apistores.ComposeDetail(store))
	}
}

func ListStoresHandler(dbStore kdb.StoreInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		stores, err := dbStore.List(ctx)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		summaries := make([]apistores.Summary, 0, len(stores))
		for _, s := range stores {
			summaries = append(summaries, apistores.ComposeSummary(s))
		}
		return c.JSON(http.StatusOK, apistores.List{Stores: summaries})
	}
}

// DeleteStoreHandler marks a store DELETING and hands it to the worker.
//
// Only settled stores (READY or FAILED) can be deleted. A PROVISIONING
// store is a moving target and a DELETED one is already gone; both are
// conflicts. Repeating a delete of a DELETING store is accepted again
// without re-enqueueing.
func DeleteStoreHandler(dbStore kdb.StoreInterface, worker Enqueuer, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		storeId := c.Param(paramKey)

		store, err := dbStore.Get(ctx, storeId)
		if err != nil {
			if errors.Is(err, kdb.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}

		switch store.Status {
		case domain.Deleting:
			return c.JSON(http.StatusAccepted, apistores.ComposeDeletion(store))
		case domain.Provisioning:
			return apierr.Conflict(
				"store is still provisioning",
				apierr.WithAdvice("wait until the store is READY or FAILED, then retry"),
			)
		case domain.Deleted:
			return apierr.Conflict("store is already deleted")
		}

		change := kdb.StatusChange{NewStatus: domain.Deleting}
		if err := dbStore.UpdateStatus(ctx, storeId, change); err != nil {
			if errors.Is(err, domain.ErrInvalidStoreStateChange) {
				// raced with another transition since the read above.
				return apierr.Conflict("store state changed, retry", apierr.WithError(err))
			}
			if errors.Is(err, kdb.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}

		worker.EnqueueTeardown(storeId)

		store.Status = domain.Deleting
		return c.JSON(http.StatusAccepted, apistores.ComposeDeletion(store))
	}
}
