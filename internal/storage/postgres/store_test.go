package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tinoosan/tesouraria/internal/errs"
	"github.com/tinoosan/tesouraria/internal/ledger"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

func mustOpen(t *testing.T, dsn string) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Migrate(dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s, err := Open(ctx, dsn, 4)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.pool.Exec(ctx, `truncate table entries, addresses, contributors, balance_snapshots, users cascade`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestMigrateURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@h:5432/db?sslmode=disable": "pgx5://u:p@h:5432/db?sslmode=disable",
		"postgresql://h/db":                        "pgx5://h/db",
	}
	for in, want := range cases {
		got, err := migrateURL(in)
		if err != nil || got != want {
			t.Fatalf("migrateURL(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := migrateURL("host=localhost dbname=x"); err == nil {
		t.Fatalf("expected error for keyword/value dsn")
	}
}

func TestStore_ContributorsAndEntries(t *testing.T) {
	s := mustOpen(t, getTestDSN(t))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Ready(ctx); err != nil {
		t.Fatalf("ready: %v", err)
	}

	bd := time.Date(1975, 4, 2, 0, 0, 0, 0, time.UTC)
	c := ledger.Contributor{ID: uuid.New(), FullName: "Ana", NationalID: "111", BirthDate: &bd, Phone: "9",
		Address: ledger.Address{Neighborhood: "Centro", PostalCode: "01001000"}}
	if _, err := s.CreateContributor(ctx, c); err != nil {
		t.Fatalf("create contributor: %v", err)
	}
	dup := c
	dup.ID = uuid.New()
	if _, err := s.CreateContributor(ctx, dup); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	var orphans int
	if err := s.pool.QueryRow(ctx, `select count(*) from addresses where contributor_id = $1`, dup.ID).Scan(&orphans); err != nil || orphans != 0 {
		t.Fatalf("expected no orphan address, got %d (%v)", orphans, err)
	}
	got, err := s.GetContributor(ctx, c.ID)
	if err != nil || got.BirthDate == nil || !got.BirthDate.Equal(bd) || got.Address.PostalCode != "01001000" {
		t.Fatalf("get contributor: %+v %v", got, err)
	}

	e := ledger.Entry{ID: uuid.New(), ContributorID: &c.ID, Direction: ledger.DirectionIncoming, Category: "Dizimo",
		Amount: ledger.AmountFromMinor(15000), Date: time.Date(2025, 7, 6, 0, 0, 0, 0, time.UTC)}
	if _, err := s.CreateEntry(ctx, e); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	missing := uuid.New()
	bad := e
	bad.ID = uuid.New()
	bad.ContributorID = &missing
	if _, err := s.CreateEntry(ctx, bad); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("expected invalid for unknown contributor, got %v", err)
	}

	p := ledger.Period{Year: 2025, Month: 7}
	in, err := s.SumEntries(ctx, p, ledger.DirectionIncoming)
	if err != nil || ledger.MinorUnits(in) != 15000 {
		t.Fatalf("sum: %s %v", in, err)
	}
	cats, err := s.SumIncomingByCategory(ctx, p, []string{"Dizimo", "Oferta EBD"})
	if err != nil || ledger.MinorUnits(cats["Dizimo"]) != 15000 {
		t.Fatalf("by category: %v %v", cats, err)
	}

	if err := s.DeleteContributor(ctx, c.ID); err != nil {
		t.Fatalf("delete contributor: %v", err)
	}
	kept, err := s.GetEntry(ctx, e.ID)
	if err != nil || kept.ContributorID != nil {
		t.Fatalf("entry should survive without reference: %+v %v", kept, err)
	}
	if err := s.DeleteContributor(ctx, c.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStore_Snapshots(t *testing.T) {
	s := mustOpen(t, getTestDSN(t))
	ctx := context.Background()
	p := ledger.Period{Year: 2024, Month: 12}
	if _, found, err := s.LatestSnapshot(ctx, p); err != nil || found {
		t.Fatalf("expected no snapshot: %v", err)
	}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, minor := range []int64{100, 300, 200} {
		b := ledger.BalanceSnapshot{ID: uuid.New(), Period: p, Closing: ledger.AmountFromMinor(minor), RecordedAt: base.Add(time.Duration([]int{0, 2, 1}[i]) * time.Hour)}
		if _, err := s.SaveSnapshot(ctx, b); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	got, found, err := s.LatestSnapshot(ctx, p)
	if err != nil || !found || ledger.MinorUnits(got.Closing) != 300 {
		t.Fatalf("latest: %+v %v", got, err)
	}
}

func TestStore_DeleteContributorFailureKeepsAddress(t *testing.T) {
	s := mustOpen(t, getTestDSN(t))
	ctx := context.Background()
	c := ledger.Contributor{ID: uuid.New(), FullName: "Rute", Phone: "7",
		Address: ledger.Address{Neighborhood: "Centro", PostalCode: "01001000"}}
	if _, err := s.CreateContributor(ctx, c); err != nil {
		t.Fatalf("create contributor: %v", err)
	}
	// Fails the second statement of the delete, after the address row is gone.
	if _, err := s.pool.Exec(ctx, `
		create or replace function block_contributor_delete() returns trigger as $$
		begin raise exception 'blocked'; end;
		$$ language plpgsql;
		create trigger block_contributor_delete before delete on contributors
		for each row execute function block_contributor_delete();
	`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.pool.Exec(context.Background(), `
			drop trigger if exists block_contributor_delete on contributors;
			drop function if exists block_contributor_delete();
		`)
	})

	if err := s.DeleteContributor(ctx, c.ID); err == nil {
		t.Fatal("expected delete to fail")
	}
	var n int
	if err := s.pool.QueryRow(ctx, `select count(*) from addresses where contributor_id = $1`, c.ID).Scan(&n); err != nil || n != 1 {
		t.Fatalf("address must survive a failed delete, got %d (%v)", n, err)
	}
	if got, err := s.GetContributor(ctx, c.ID); err != nil || got.Address.PostalCode != "01001000" {
		t.Fatalf("contributor must survive a failed delete: %+v %v", got, err)
	}
}

func TestStore_LastRepresentableMonth(t *testing.T) {
	s := mustOpen(t, getTestDSN(t))
	ctx := context.Background()
	e := ledger.Entry{ID: uuid.New(), Direction: ledger.DirectionIncoming, Category: "Dizimo",
		Amount: ledger.AmountFromMinor(4200), Date: time.Date(9999, 12, 15, 0, 0, 0, 0, time.UTC)}
	if _, err := s.CreateEntry(ctx, e); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	in, err := s.SumEntries(ctx, ledger.Period{Year: 9999, Month: 12}, ledger.DirectionIncoming)
	if err != nil || ledger.MinorUnits(in) != 4200 {
		t.Fatalf("december 9999 incoming = %s (%v), want 42.00", in, err)
	}
}

func TestStore_Addresses(t *testing.T) {
	s := mustOpen(t, getTestDSN(t))
	ctx := context.Background()
	c := ledger.Contributor{ID: uuid.New(), FullName: "Lia", Phone: "3",
		Address: ledger.Address{Street: "Rua A", Neighborhood: "Centro", PostalCode: "01001000"}}
	if _, err := s.CreateContributor(ctx, c); err != nil {
		t.Fatalf("create contributor: %v", err)
	}
	list, err := s.ListAddresses(ctx)
	if err != nil || len(list) != 1 || list[0].Address != c.Address {
		t.Fatalf("list: %+v %v", list, err)
	}
	addr := ledger.ContributorAddress{ContributorID: c.ID, Address: ledger.Address{Street: "Rua B", Neighborhood: "Vila", PostalCode: "1"}}
	if err := s.AddAddress(ctx, addr); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := s.pool.Exec(ctx, `delete from addresses where contributor_id = $1`, c.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.AddAddress(ctx, addr); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got, err := s.GetContributor(ctx, c.ID); err != nil || got.Address != addr.Address {
		t.Fatalf("contributor should carry the new address: %+v %v", got, err)
	}
}
