package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	kpool "github.com/storeward/storeward/pkg/conn/db/postgres/pool"
	"github.com/storeward/storeward/pkg/domain"
	kdb "github.com/storeward/storeward/pkg/domain/store/db"
	xe "github.com/storeward/storeward/pkg/errors"
)

// how often Create retries when the random id suffix collides.
const idRetry = 3

type pgStore struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kdb.StoreInterface {
	return &pgStore{pool: pool}
}

var _ kdb.StoreInterface = &pgStore{}

const storeColumns = `
	"id", "name", "engine", "namespace", "helm_release", "status",
	coalesce("store_url", ''), coalesce("failure_reason", ''),
	"admin_username", "admin_email", "admin_password",
	"db_name", "db_username", "db_password", "db_root_password",
	"created_at", "updated_at"
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStore(r rowScanner) (domain.Store, error) {
	s := domain.Store{}
	var status, engine string
	if err := r.Scan(
		&s.Id, &s.Name, &engine, &s.Namespace, &s.HelmRelease, &status,
		&s.StoreURL, &s.FailureReason,
		&s.Admin.Username, &s.Admin.Email, &s.Admin.Password,
		&s.DB.Name, &s.DB.Username, &s.DB.Password, &s.DB.RootPassword,
		&s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return domain.Store{}, err
	}

	var err error
	if s.Status, err = domain.AsStoreStatus(status); err != nil {
		return domain.Store{}, err
	}
	if s.Engine, err = domain.AsStoreEngine(engine); err != nil {
		return domain.Store{}, err
	}
	return s, nil
}

func (p *pgStore) Create(ctx context.Context, spec kdb.NewStore) (domain.Store, error) {
	if err := domain.ValidateStoreName(spec.Name); err != nil {
		return domain.Store{}, err
	}
	if _, err := domain.AsStoreEngine(spec.Engine.String()); err != nil {
		return domain.Store{}, err
	}

	dbcreds := domain.NewDBCredentials()

	var lastErr error
	for range idRetry {
		storeId := domain.NewStoreId(spec.Name)

		store, err := p.insert(ctx, storeId, spec, dbcreds)
		if err == nil {
			return store, nil
		}
		if errors.Is(err, errIdCollision) {
			lastErr = err
			continue // fresh suffix, try again
		}
		return domain.Store{}, err
	}
	return domain.Store{}, xe.WrapWithNote("store id keeps colliding", lastErr)
}

// errIdCollision: the generated primary key already exists.
var errIdCollision = errors.New("store id collision")

func (p *pgStore) insert(
	ctx context.Context, storeId string, spec kdb.NewStore, dbcreds domain.DBCredentials,
) (domain.Store, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return domain.Store{}, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(
		ctx,
		`
		insert into "stores" (
			"id", "name", "engine", "namespace", "helm_release", "status",
			"admin_username", "admin_email", "admin_password",
			"db_name", "db_username", "db_password", "db_root_password"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		returning `+storeColumns+`;
		`,
		storeId, spec.Name, spec.Engine.String(),
		domain.NamespaceOf(storeId), storeId, domain.Provisioning.String(),
		spec.Admin.Username, spec.Admin.Email, spec.Admin.Password,
		dbcreds.Name, dbcreds.Username, dbcreds.Password, dbcreds.RootPassword,
	)

	store, err := scanStore(row)
	if err != nil {
		pgErr := new(pgconn.PgError)
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			if pgErr.ConstraintName == "stores_pkey" {
				return domain.Store{}, errIdCollision
			}
			return domain.Store{}, domain.ErrStoreNameConflict
		}
		return domain.Store{}, xe.Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Store{}, xe.Wrap(err)
	}
	return store, nil
}

func (p *pgStore) Get(ctx context.Context, storeId string) (domain.Store, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return domain.Store{}, xe.Wrap(err)
	}
	defer conn.Release()

	row := conn.QueryRow(
		ctx, `select `+storeColumns+` from "stores" where "id" = $1;`, storeId,
	)
	store, err := scanStore(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Store{}, kdb.ErrMissing
	}
	if err != nil {
		return domain.Store{}, xe.Wrap(err)
	}
	return store, nil
}

func (p *pgStore) List(ctx context.Context) ([]domain.Store, error) {
	return p.listWhere(ctx, ``)
}

func (p *pgStore) ListNonTerminal(ctx context.Context) ([]domain.Store, error) {
	return p.listWhere(ctx, `where "status" in ('PROVISIONING', 'DELETING')`)
}

func (p *pgStore) listWhere(ctx context.Context, where string) ([]domain.Store, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`select `+storeColumns+` from "stores" `+where+` order by "created_at" desc;`,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	stores := []domain.Store{}
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		stores = append(stores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return stores, nil
}

func (p *pgStore) UpdateStatus(
	ctx context.Context, storeId string, change kdb.StatusChange,
) error {
	if err := validateChange(change); err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	var current string
	if err := tx.QueryRow(
		ctx, `select "status" from "stores" where "id" = $1 for update;`, storeId,
	).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return kdb.ErrMissing
		}
		return xe.Wrap(err)
	}

	from, err := domain.AsStoreStatus(current)
	if err != nil {
		return xe.Wrap(err)
	}
	if !from.CanTransitTo(change.NewStatus) {
		return domain.NewErrInvalidStoreStateChange(from, change.NewStatus)
	}

	// store_url lives only on READY rows, failure_reason only on FAILED ones.
	var url, reason interface{}
	if change.NewStatus == domain.Ready {
		url = change.StoreURL
	}
	if change.NewStatus == domain.Failed {
		reason = change.FailureReason
	}

	if _, err := tx.Exec(
		ctx,
		`
		update "stores"
		set "status" = $2, "store_url" = $3, "failure_reason" = $4,
		    "updated_at" = now()
		where "id" = $1;
		`,
		storeId, change.NewStatus.String(), url, reason,
	); err != nil {
		return xe.Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

func validateChange(change kdb.StatusChange) error {
	switch change.NewStatus {
	case domain.Ready:
		if change.StoreURL == "" {
			return xe.WrapWithNote(
				"StatusChange to READY requires StoreURL", domain.ErrInvalidStore,
			)
		}
	case domain.Failed:
		if change.FailureReason == "" {
			return xe.WrapWithNote(
				"StatusChange to FAILED requires FailureReason", domain.ErrInvalidStore,
			)
		}
	}
	return nil
}
