package contributor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tinoosan/tesouraria/internal/errs"
	"github.com/tinoosan/tesouraria/internal/ledger"
)

type fakeStore struct {
	byID map[uuid.UUID]ledger.Contributor
}

func newFake() *fakeStore { return &fakeStore{byID: map[uuid.UUID]ledger.Contributor{}} }

func (f *fakeStore) ListContributors(context.Context) ([]ledger.Contributor, error) {
	out := make([]ledger.Contributor, 0, len(f.byID))
	for _, c := range f.byID {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeStore) GetContributor(_ context.Context, id uuid.UUID) (ledger.Contributor, error) {
	c, ok := f.byID[id]
	if !ok {
		return ledger.Contributor{}, errs.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) CreateContributor(_ context.Context, c ledger.Contributor) (ledger.Contributor, error) {
	f.byID[c.ID] = c
	return c, nil
}

func (f *fakeStore) DeleteContributor(_ context.Context, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeStore) ListAddresses(context.Context) ([]ledger.ContributorAddress, error) {
	out := make([]ledger.ContributorAddress, 0, len(f.byID))
	for id, c := range f.byID {
		if c.Address != (ledger.Address{}) {
			out = append(out, ledger.ContributorAddress{ContributorID: id, Address: c.Address})
		}
	}
	return out, nil
}

func (f *fakeStore) AddAddress(_ context.Context, a ledger.ContributorAddress) error {
	c := f.byID[a.ContributorID]
	if c.Address != (ledger.Address{}) {
		return errs.ErrConflict
	}
	c.Address = a.Address
	f.byID[a.ContributorID] = c
	return nil
}

func valid() ledger.Contributor {
	return ledger.Contributor{
		FullName: "  Maria da Silva ",
		Phone:    "11 99999-0000",
		Address:  ledger.Address{Neighborhood: "Centro", PostalCode: "01001-000", HouseNumber: "12"},
	}
}

func TestValidateRequiredFields(t *testing.T) {
	svc := New(newFake(), newFake())
	cases := map[string]func(*ledger.Contributor){
		"nome_completo": func(c *ledger.Contributor) { c.FullName = "  " },
		"telefone":      func(c *ledger.Contributor) { c.Phone = "" },
		"bairro":        func(c *ledger.Contributor) { c.Address.Neighborhood = "" },
		"cep":           func(c *ledger.Contributor) { c.Address.PostalCode = "" },
	}
	for field, mutate := range cases {
		c := valid()
		mutate(&c)
		_, err := svc.Validate(c)
		var fe *errs.Field
		if !errors.As(err, &fe) || fe.Name != field {
			t.Fatalf("%s: expected field error, got %v", field, err)
		}
		if !errors.Is(err, errs.ErrInvalid) {
			t.Fatalf("%s: field error should match ErrInvalid", field)
		}
	}
}

func TestValidateNormalizes(t *testing.T) {
	c := valid()
	c.NationalID = " 123.456.789-00 "
	bd := time.Date(1980, 5, 17, 15, 30, 0, 0, time.UTC)
	c.BirthDate = &bd
	got, err := New(newFake(), newFake()).Validate(c)
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if got.FullName != "Maria da Silva" || got.NationalID != "12345678900" {
		t.Fatalf("unexpected normalization: %+v", got)
	}
	if got.BirthDate.Hour() != 0 || got.BirthDate.Day() != 17 {
		t.Fatalf("birth date not truncated: %v", got.BirthDate)
	}
}

func TestCreateGetDelete(t *testing.T) {
	store := newFake()
	svc := New(store, store)
	ctx := context.Background()
	c, err := svc.Create(ctx, valid())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == uuid.Nil {
		t.Fatalf("expected id to be assigned")
	}
	got, err := svc.Get(ctx, c.ID)
	if err != nil || got.FullName != "Maria da Silva" {
		t.Fatalf("get: %+v %v", got, err)
	}
	if err := svc.Delete(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, c.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := svc.Delete(ctx, uuid.Nil); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("expected invalid for nil id, got %v", err)
	}
}

func TestAddAddress(t *testing.T) {
	store := newFake()
	svc := New(store, store)
	ctx := context.Background()

	registered, err := svc.Create(ctx, valid())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	imported := ledger.Contributor{ID: uuid.New(), FullName: "Importado", Phone: "1"}
	store.byID[imported.ID] = imported

	addr := ledger.Address{Street: " Rua B ", Neighborhood: "Vila", PostalCode: "02000-000"}
	missing := map[string]ledger.ContributorAddress{
		"id_dizimista": {Address: addr},
		"rua":          {ContributorID: imported.ID, Address: ledger.Address{Neighborhood: "Vila", PostalCode: "1"}},
		"bairro":       {ContributorID: imported.ID, Address: ledger.Address{Street: "Rua B", PostalCode: "1"}},
		"cep":          {ContributorID: imported.ID, Address: ledger.Address{Street: "Rua B", Neighborhood: "Vila"}},
	}
	for field, a := range missing {
		var fe *errs.Field
		if _, err := svc.AddAddress(ctx, a); !errors.As(err, &fe) || fe.Name != field {
			t.Fatalf("%s: expected field error, got %v", field, err)
		}
	}

	if _, err := svc.AddAddress(ctx, ledger.ContributorAddress{ContributorID: uuid.New(), Address: addr}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown contributor: expected not found, got %v", err)
	}
	if _, err := svc.AddAddress(ctx, ledger.ContributorAddress{ContributorID: registered.ID, Address: addr}); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("registered contributor: expected conflict, got %v", err)
	}
	got, err := svc.AddAddress(ctx, ledger.ContributorAddress{ContributorID: imported.ID, Address: addr})
	if err != nil || got.Street != "Rua B" {
		t.Fatalf("imported contributor: %+v %v", got, err)
	}
	list, err := svc.Addresses(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("addresses: %+v %v", list, err)
	}
}
