// Package sqlite stores the treasury in a single SQLite file through modernc.org/sqlite.
// Dates are kept as YYYY-MM-DD text; month filters match on the YYYY-MM prefix.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/tinoosan/tesouraria/internal/errs"
	"github.com/tinoosan/tesouraria/internal/ledger"
)

type Store struct {
	db *sql.DB
}

func dsn(path string) string {
	return path + "?_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)"
}

// Open creates the parent directory if needed, opens the database and applies migrations.
func Open(ctx context.Context, path string, maxConns int) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	if err := Migrate(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", errs.ErrStorageUnavailable, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ready(ctx context.Context) error { return s.db.PingContext(ctx) }

type scanner interface {
	Scan(dest ...any) error
}

// --- Contributors ---

const contributorColumns = `
	SELECT c.id, c.full_name, COALESCE(c.cpf, ''), c.birth_date, c.phone,
	       COALESCE(a.street, ''), COALESCE(a.neighborhood, ''), COALESCE(a.house_number, ''), COALESCE(a.postal_code, '')
	FROM contributors c
	LEFT JOIN addresses a ON a.contributor_id = c.id`

func scanContributor(row scanner) (ledger.Contributor, error) {
	var c ledger.Contributor
	var birth sql.NullString
	if err := row.Scan(&c.ID, &c.FullName, &c.NationalID, &birth, &c.Phone,
		&c.Address.Street, &c.Address.Neighborhood, &c.Address.HouseNumber, &c.Address.PostalCode); err != nil {
		return ledger.Contributor{}, err
	}
	if birth.Valid && birth.String != "" {
		d, err := ledger.ParseDate(birth.String)
		if err != nil {
			return ledger.Contributor{}, fmt.Errorf("birth date %q: %w", birth.String, err)
		}
		c.BirthDate = &d
	}
	return c, nil
}

func (s *Store) ListContributors(ctx context.Context) ([]ledger.Contributor, error) {
	rows, err := s.db.QueryContext(ctx, contributorColumns+` ORDER BY lower(c.full_name), c.id`)
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
	c, err := scanContributor(s.db.QueryRowContext(ctx, contributorColumns+` WHERE c.id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Contributor{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Contributor{}, fmt.Errorf("get contributor: %w", err)
	}
	return c, nil
}

func (s *Store) CreateContributor(ctx context.Context, c ledger.Contributor) (ledger.Contributor, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Contributor{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	var birth any
	if c.BirthDate != nil {
		birth = c.BirthDate.Format(ledger.DateLayout)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO contributors (id, full_name, cpf, birth_date, phone) VALUES (?, ?, ?, ?, ?)
	`, c.ID.String(), c.FullName, nullIfEmpty(c.NationalID), birth, c.Phone); err != nil {
		return ledger.Contributor{}, mapErr("insert contributor", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO addresses (contributor_id, street, neighborhood, house_number, postal_code) VALUES (?, ?, ?, ?, ?)
	`, c.ID.String(), c.Address.Street, c.Address.Neighborhood, c.Address.HouseNumber, c.Address.PostalCode); err != nil {
		return ledger.Contributor{}, mapErr("insert address", err)
	}
	if err := tx.Commit(); err != nil {
		return ledger.Contributor{}, fmt.Errorf("commit: %w", err)
	}
	return c, nil
}

func (s *Store) ListAddresses(ctx context.Context) ([]ledger.ContributorAddress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT contributor_id, street, neighborhood, house_number, postal_code
		FROM addresses ORDER BY contributor_id
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
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO addresses (contributor_id, street, neighborhood, house_number, postal_code) VALUES (?, ?, ?, ?, ?)
	`, a.ContributorID.String(), a.Street, a.Neighborhood, a.HouseNumber, a.PostalCode)
	if err != nil {
		return mapErr("insert address", err)
	}
	return nil
}

func (s *Store) DeleteContributor(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM addresses WHERE contributor_id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM contributors WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete contributor: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// --- Entries ---

const entryColumns = `SELECT id, contributor_id, direction, category, amount_minor, entry_date, note FROM entries`

func scanEntry(row scanner) (ledger.Entry, error) {
	var (
		e       ledger.Entry
		contrib uuid.NullUUID
		dir     string
		minor   int64
		date    string
	)
	if err := row.Scan(&e.ID, &contrib, &dir, &e.Category, &minor, &date, &e.Note); err != nil {
		return ledger.Entry{}, err
	}
	if contrib.Valid {
		id := contrib.UUID
		e.ContributorID = &id
	}
	d, err := ledger.ParseDate(date)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("entry date %q: %w", date, err)
	}
	if e.Amount, err = ledger.FromMinor(minor); err != nil {
		return ledger.Entry{}, err
	}
	e.Direction = ledger.Direction(dir)
	e.Date = d
	return e, nil
}

func (s *Store) ListEntries(ctx context.Context) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, entryColumns+` ORDER BY entry_date ASC, id ASC`)
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
	e, err := scanEntry(s.db.QueryRowContext(ctx, entryColumns+` WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
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
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entries (id, contributor_id, direction, category, amount_minor, entry_date, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID.String(), nullableID(e.ContributorID), string(e.Direction), e.Category, minor,
		e.Date.Format(ledger.DateLayout), e.Note)
	if err != nil {
		return ledger.Entry{}, mapErr("insert entry", err)
	}
	return e, nil
}

func (s *Store) UpdateEntry(ctx context.Context, e ledger.Entry) (ledger.Entry, error) {
	minor, err := ledger.ToMinor(e.Amount)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("update entry: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE entries
		SET contributor_id = ?, direction = ?, category = ?, amount_minor = ?, entry_date = ?, note = ?
		WHERE id = ?
	`, nullableID(e.ContributorID), string(e.Direction), e.Category, minor,
		e.Date.Format(ledger.DateLayout), e.Note, e.ID.String())
	if err != nil {
		return ledger.Entry{}, mapErr("update entry", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.Entry{}, errs.ErrNotFound
	}
	return e, nil
}

func (s *Store) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// --- Report aggregates ---

// monthKey is the "YYYY-MM" prefix of every entry_date in the month.
// A text upper bound cannot be used: the month after 12/9999 formats as "10000-01-01".
func monthKey(p ledger.Period) string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

func (s *Store) SumEntries(ctx context.Context, p ledger.Period, dir ledger.Direction) (money.Amount, error) {
	var minor int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_minor), 0) FROM entries
		WHERE direction = ? AND substr(entry_date, 1, 7) = ?
	`, string(dir), monthKey(p)).Scan(&minor)
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, SUM(amount_minor) FROM entries
		WHERE direction = ? AND substr(entry_date, 1, 7) = ?
		GROUP BY category
	`, string(ledger.DirectionIncoming), monthKey(p))
	if err != nil {
		return nil, fmt.Errorf("%w: sum by category: %w", errs.ErrStorageUnavailable, err)
	}
	defer rows.Close()
	want := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		want[c] = struct{}{}
	}
	for rows.Next() {
		var cat string
		var minor int64
		if err := rows.Scan(&cat, &minor); err != nil {
			return nil, fmt.Errorf("%w: scan category sum: %w", errs.ErrStorageUnavailable, err)
		}
		if _, ok := want[cat]; !ok {
			continue
		}
		amt, err := ledger.FromMinor(minor)
		if err != nil {
			return nil, fmt.Errorf("sum of %s: %w", cat, err)
		}
		out[cat] = amt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrStorageUnavailable, err)
	}
	return out, nil
}

func (s *Store) LatestSnapshot(ctx context.Context, p ledger.Period) (ledger.BalanceSnapshot, bool, error) {
	b := ledger.BalanceSnapshot{Period: p}
	var minor, recorded int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, closing_minor, recorded_at FROM balance_snapshots
		WHERE year = ? AND month = ?
		ORDER BY recorded_at DESC, rowid DESC
		LIMIT 1
	`, p.Year, p.Month).Scan(&b.ID, &minor, &recorded)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.BalanceSnapshot{}, false, nil
	}
	if err != nil {
		return ledger.BalanceSnapshot{}, false, fmt.Errorf("%w: latest snapshot: %w", errs.ErrStorageUnavailable, err)
	}
	if b.Closing, err = ledger.FromMinor(minor); err != nil {
		return ledger.BalanceSnapshot{}, false, fmt.Errorf("latest snapshot: %w", err)
	}
	b.RecordedAt = time.Unix(0, recorded).UTC()
	return b, true, nil
}

func (s *Store) SaveSnapshot(ctx context.Context, b ledger.BalanceSnapshot) (ledger.BalanceSnapshot, error) {
	minor, err := ledger.ToMinor(b.Closing)
	if err != nil {
		return ledger.BalanceSnapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO balance_snapshots (id, year, month, closing_minor, recorded_at) VALUES (?, ?, ?, ?, ?)
	`, b.ID.String(), b.Period.Year, b.Period.Month, minor, b.RecordedAt.UnixNano())
	if err != nil {
		return ledger.BalanceSnapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}
	return b, nil
}

// --- Users ---

func (s *Store) UserByUsername(ctx context.Context, username string) (ledger.User, error) {
	var u ledger.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role FROM users WHERE username = ?
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.User{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u ledger.User) (ledger.User, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, role) VALUES (?, ?, ?, ?)
	`, u.ID.String(), u.Username, u.PasswordHash, u.Role)
	if err != nil {
		return ledger.User{}, mapErr("insert user", err)
	}
	return u, nil
}

func mapErr(op string, err error) error {
	var se *msqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		msg := se.Error()
		switch {
		case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
			code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(msg, "UNIQUE"):
			return fmt.Errorf("%w: %s", errs.ErrConflict, msg)
		case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY,
			code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(msg, "FOREIGN KEY"):
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

func nullableID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
