package postgres

// Package postgres provides a pgx-backed storage implementation that satisfies
// the repository and writer interfaces used by the services.
//
// The schema lives under migrations/ and is applied with Migrate. This package
// maps between the domain entities and SQL rows and runs the statements and
// transactions.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinoosan/tesouraria/internal/errs"
	"github.com/tinoosan/tesouraria/internal/ledger"
)

const (
	sqlstateUniqueViolation     = "23505"
	sqlstateForeignKeyViolation = "23503"
)

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string. maxConns <= 0 keeps the pgx default.
func Open(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrStorageUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", errs.ErrStorageUnavailable, err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// --- Contributors ---

const contributorColumns = `
	select c.id, c.full_name, coalesce(c.cpf, ''), c.birth_date, c.phone,
	       coalesce(a.street, ''), coalesce(a.neighborhood, ''), coalesce(a.house_number, ''), coalesce(a.postal_code, '')
	from contributors c
	left join addresses a on a.contributor_id = c.id`

func scanContributor(row pgx.Row) (ledger.Contributor, error) {
	var c ledger.Contributor
	var birth *time.Time
	if err := row.Scan(&c.ID, &c.FullName, &c.NationalID, &birth, &c.Phone,
		&c.Address.Street, &c.Address.Neighborhood, &c.Address.HouseNumber, &c.Address.PostalCode); err != nil {
		return ledger.Contributor{}, err
	}
	if birth != nil {
		d := ledger.Day(*birth)
		c.BirthDate = &d
	}
	return c, nil
}

// ListContributors returns every contributor with its address, ordered by name.
func (s *Store) ListContributors(ctx context.Context) ([]ledger.Contributor, error) {
	rows, err := s.pool.Query(ctx, contributorColumns+` order by lower(c.full_name), c.id`)
	if err != nil {
		return nil, fmt.Errorf("list contributors: %w", err)
	}
	defer rows.Close()
	out := make([]ledger.Contributor, 0)
	for rows.Next() {
		c, err := scanContributor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contributor: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetContributor(ctx context.Context, id uuid.UUID) (ledger.Contributor, error) {
	c, err := scanContributor(s.pool.QueryRow(ctx, contributorColumns+` where c.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Contributor{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Contributor{}, fmt.Errorf("get contributor: %w", err)
	}
	return c, nil
}

// CreateContributor inserts the contributor and its address in one transaction.
func (s *Store) CreateContributor(ctx context.Context, c ledger.Contributor) (ledger.Contributor, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.Contributor{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `
		insert into contributors (id, full_name, cpf, birth_date, phone)
		values ($1, $2, $3, $4, $5)
	`, c.ID, c.FullName, nullIfEmpty(c.NationalID), c.BirthDate, c.Phone); err != nil {
		return ledger.Contributor{}, mapErr("insert contributor", err)
	}
	if _, err := tx.Exec(ctx, `
		insert into addresses (contributor_id, street, neighborhood, house_number, postal_code)
		values ($1, $2, $3, $4, $5)
	`, c.ID, c.Address.Street, c.Address.Neighborhood, c.Address.HouseNumber, c.Address.PostalCode); err != nil {
		return ledger.Contributor{}, mapErr("insert address", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.Contributor{}, fmt.Errorf("commit: %w", err)
	}
	return c, nil
}

// ListAddresses returns every address row ordered by contributor id.
func (s *Store) ListAddresses(ctx context.Context) ([]ledger.ContributorAddress, error) {
	rows, err := s.pool.Query(ctx, `
		select contributor_id, street, neighborhood, house_number, postal_code
		from addresses order by contributor_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()
	out := make([]ledger.ContributorAddress, 0)
	for rows.Next() {
		var a ledger.ContributorAddress
		if err := rows.Scan(&a.ContributorID, &a.Street, &a.Neighborhood, &a.HouseNumber, &a.PostalCode); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AddAddress inserts the address row of a contributor that has none.
func (s *Store) AddAddress(ctx context.Context, a ledger.ContributorAddress) error {
	_, err := s.pool.Exec(ctx, `
		insert into addresses (contributor_id, street, neighborhood, house_number, postal_code)
		values ($1, $2, $3, $4, $5)
	`, a.ContributorID, a.Street, a.Neighborhood, a.HouseNumber, a.PostalCode)
	if err != nil {
		return mapErr("insert address", err)
	}
	return nil
}

// DeleteContributor removes the address and the contributor in one transaction.
// Entries keep their rows; the foreign key clears their contributor reference.
func (s *Store) DeleteContributor(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `delete from addresses where contributor_id = $1`, id); err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	ct, err := tx.Exec(ctx, `delete from contributors where id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete contributor: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// --- Entries ---

const entryColumns = `select id, contributor_id, direction, category, amount_minor, entry_date, note from entries`

func scanEntry(row pgx.Row) (ledger.Entry, error) {
	var (
		e        ledger.Entry
		contrib  uuid.NullUUID
		dir      string
		minor    int64
		occurred time.Time
	)
	if err := row.Scan(&e.ID, &contrib, &dir, &e.Category, &minor, &occurred, &e.Note); err != nil {
		return ledger.Entry{}, err
	}
	if contrib.Valid {
		id := contrib.UUID
		e.ContributorID = &id
	}
	amt, err := ledger.FromMinor(minor)
	if err != nil {
		return ledger.Entry{}, err
	}
	e.Direction = ledger.Direction(dir)
	e.Amount = amt
	e.Date = ledger.Day(occurred)
	return e, nil
}

// ListEntries returns all entries ordered by date then id.
func (s *Store) ListEntries(ctx context.Context) ([]ledger.Entry, error) {
	rows, err := s.pool.Query(ctx, entryColumns+` order by entry_date asc, id asc`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()
	out := make([]ledger.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) GetEntry(ctx context.Context, id uuid.UUID) (ledger.Entry, error) {
	e, err := scanEntry(s.pool.QueryRow(ctx, entryColumns+` where id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Entry{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

func (s *Store) CreateEntry(ctx context.Context, e ledger.Entry) (ledger.Entry, error) {
	minor, err := ledger.ToMinor(e.Amount)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		insert into entries (id, contributor_id, direction, category, amount_minor, entry_date, note)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.ContributorID, string(e.Direction), e.Category, minor, e.Date, e.Note)
	if err != nil {
		return ledger.Entry{}, mapErr("insert entry", err)
	}
	return e, nil
}

// UpdateEntry replaces every mutable column of an entry.
func (s *Store) UpdateEntry(ctx context.Context, e ledger.Entry) (ledger.Entry, error) {
	minor, err := ledger.ToMinor(e.Amount)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("update entry: %w", err)
	}
	ct, err := s.pool.Exec(ctx, `
		update entries
		set contributor_id=$1, direction=$2, category=$3, amount_minor=$4, entry_date=$5, note=$6
		where id=$7
	`, e.ContributorID, string(e.Direction), e.Category, minor, e.Date, e.Note, e.ID)
	if err != nil {
		return ledger.Entry{}, mapErr("update entry", err)
	}
	if ct.RowsAffected() == 0 {
		return ledger.Entry{}, errs.ErrNotFound
	}
	return e, nil
}

func (s *Store) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from entries where id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// --- Report aggregates ---

func (s *Store) SumEntries(ctx context.Context, p ledger.Period, dir ledger.Direction) (money.Amount, error) {
	from, to := p.Range()
	var minor int64
	err := s.pool.QueryRow(ctx, `
		select coalesce(sum(amount_minor), 0)::bigint
		from entries
		where direction = $1 and entry_date >= $2 and entry_date < $3
	`, string(dir), from, to).Scan(&minor)
	if err != nil {
		return money.Amount{}, fmt.Errorf("%w: sum entries: %w", errs.ErrStorageUnavailable, err)
	}
	return ledger.FromMinor(minor)
}

func (s *Store) SumIncomingByCategory(ctx context.Context, p ledger.Period, categories []string) (map[string]money.Amount, error) {
	out := make(map[string]money.Amount, len(categories))
	if len(categories) == 0 {
		return out, nil
	}
	from, to := p.Range()
	rows, err := s.pool.Query(ctx, `
		select category, sum(amount_minor)::bigint
		from entries
		where direction = $1 and entry_date >= $2 and entry_date < $3 and category = any($4)
		group by category
	`, string(ledger.DirectionIncoming), from, to, categories)
	if err != nil {
		return nil, fmt.Errorf("%w: sum by category: %w", errs.ErrStorageUnavailable, err)
	}
	defer rows.Close()
	for rows.Next() {
		var cat string
		var minor int64
		if err := rows.Scan(&cat, &minor); err != nil {
			return nil, fmt.Errorf("%w: scan category sum: %w", errs.ErrStorageUnavailable, err)
		}
		amt, err := ledger.FromMinor(minor)
		if err != nil {
			return nil, fmt.Errorf("sum of %s: %w", cat, err)
		}
		out[cat] = amt
	}
	return out, rows.Err()
}

func (s *Store) LatestSnapshot(ctx context.Context, p ledger.Period) (ledger.BalanceSnapshot, bool, error) {
	b := ledger.BalanceSnapshot{Period: p}
	var minor int64
	err := s.pool.QueryRow(ctx, `
		select id, closing_minor, recorded_at
		from balance_snapshots
		where year = $1 and month = $2
		order by recorded_at desc
		limit 1
	`, p.Year, p.Month).Scan(&b.ID, &minor, &b.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.BalanceSnapshot{}, false, nil
	}
	if err != nil {
		return ledger.BalanceSnapshot{}, false, fmt.Errorf("%w: latest snapshot: %w", errs.ErrStorageUnavailable, err)
	}
	if b.Closing, err = ledger.FromMinor(minor); err != nil {
		return ledger.BalanceSnapshot{}, false, fmt.Errorf("latest snapshot: %w", err)
	}
	return b, true, nil
}

func (s *Store) SaveSnapshot(ctx context.Context, b ledger.BalanceSnapshot) (ledger.BalanceSnapshot, error) {
	minor, err := ledger.ToMinor(b.Closing)
	if err != nil {
		return ledger.BalanceSnapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		insert into balance_snapshots (id, year, month, closing_minor, recorded_at)
		values ($1, $2, $3, $4, $5)
	`, b.ID, b.Period.Year, b.Period.Month, minor, b.RecordedAt)
	if err != nil {
		return ledger.BalanceSnapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}
	return b, nil
}

// --- Users ---

func (s *Store) UserByUsername(ctx context.Context, username string) (ledger.User, error) {
	var u ledger.User
	err := s.pool.QueryRow(ctx, `
		select id, username, password_hash, role from users where username = $1
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.User{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u ledger.User) (ledger.User, error) {
	_, err := s.pool.Exec(ctx, `
		insert into users (id, username, password_hash, role) values ($1, $2, $3, $4)
	`, u.ID, u.Username, u.PasswordHash, u.Role)
	if err != nil {
		return ledger.User{}, mapErr("insert user", err)
	}
	return u, nil
}

// mapErr translates constraint violations into domain errors.
func mapErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlstateUniqueViolation:
			return fmt.Errorf("%w: %s", errs.ErrConflict, pgErr.ConstraintName)
		case sqlstateForeignKeyViolation:
			return errs.Invalid("id_dizimista", "dizimista não encontrado")
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
