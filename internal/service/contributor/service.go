// Package contributor implements the rules for registering "dizimistas": required
// fields, optional CPF uniqueness and the contributor+address lifecycle.
package contributor

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/tinoosan/tesouraria/internal/errs"
	"github.com/tinoosan/tesouraria/internal/ledger"
)

type Repo interface {
	ListContributors(ctx context.Context) ([]ledger.Contributor, error)
	GetContributor(ctx context.Context, id uuid.UUID) (ledger.Contributor, error)
	ListAddresses(ctx context.Context) ([]ledger.ContributorAddress, error)
}

// Writer persists contributors. Both methods must write or remove the contributor
// and its address atomically.
type Writer interface {
	CreateContributor(ctx context.Context, c ledger.Contributor) (ledger.Contributor, error)
	DeleteContributor(ctx context.Context, id uuid.UUID) error
	// AddAddress fails with ErrConflict when the contributor already has an address.
	AddAddress(ctx context.Context, a ledger.ContributorAddress) error
}

type Service interface {
	Validate(c ledger.Contributor) (ledger.Contributor, error)
	Create(ctx context.Context, c ledger.Contributor) (ledger.Contributor, error)
	List(ctx context.Context) ([]ledger.Contributor, error)
	Get(ctx context.Context, id uuid.UUID) (ledger.Contributor, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ValidateAddress(a ledger.ContributorAddress) (ledger.ContributorAddress, error)
	Addresses(ctx context.Context) ([]ledger.ContributorAddress, error)
	AddAddress(ctx context.Context, a ledger.ContributorAddress) (ledger.ContributorAddress, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

// Validate trims the input and checks required fields. It returns the normalized contributor.
func (s *service) Validate(c ledger.Contributor) (ledger.Contributor, error) {
	c.FullName = strings.TrimSpace(c.FullName)
	c.NationalID = normalizeCPF(c.NationalID)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address.Street = strings.TrimSpace(c.Address.Street)
	c.Address.Neighborhood = strings.TrimSpace(c.Address.Neighborhood)
	c.Address.HouseNumber = strings.TrimSpace(c.Address.HouseNumber)
	c.Address.PostalCode = strings.TrimSpace(c.Address.PostalCode)
	switch {
	case c.FullName == "":
		return c, errs.Invalid("nome_completo", "obrigatório")
	case c.Phone == "":
		return c, errs.Invalid("telefone", "obrigatório")
	case c.Address.Neighborhood == "":
		return c, errs.Invalid("bairro", "obrigatório")
	case c.Address.PostalCode == "":
		return c, errs.Invalid("cep", "obrigatório")
	}
	if c.BirthDate != nil {
		d := ledger.Day(*c.BirthDate)
		c.BirthDate = &d
	}
	return c, nil
}

func (s *service) Create(ctx context.Context, c ledger.Contributor) (ledger.Contributor, error) {
	c, err := s.Validate(c)
	if err != nil {
		return ledger.Contributor{}, err
	}
	c.ID = uuid.New()
	return s.writer.CreateContributor(ctx, c)
}

func (s *service) List(ctx context.Context) ([]ledger.Contributor, error) {
	return s.repo.ListContributors(ctx)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (ledger.Contributor, error) {
	if id == uuid.Nil {
		return ledger.Contributor{}, errs.ErrInvalid
	}
	return s.repo.GetContributor(ctx, id)
}

// Delete removes the contributor and its address. Entries referencing the contributor are kept
// and lose the reference.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errs.ErrInvalid
	}
	return s.writer.DeleteContributor(ctx, id)
}

// ValidateAddress checks the fields required on the standalone address route.
// Street is mandatory here, unlike on contributor creation.
func (s *service) ValidateAddress(a ledger.ContributorAddress) (ledger.ContributorAddress, error) {
	a.Street = strings.TrimSpace(a.Street)
	a.Neighborhood = strings.TrimSpace(a.Neighborhood)
	a.HouseNumber = strings.TrimSpace(a.HouseNumber)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	switch {
	case a.ContributorID == uuid.Nil:
		return a, errs.Invalid("id_dizimista", "obrigatório")
	case a.Street == "":
		return a, errs.Invalid("rua", "obrigatório")
	case a.Neighborhood == "":
		return a, errs.Invalid("bairro", "obrigatório")
	case a.PostalCode == "":
		return a, errs.Invalid("cep", "obrigatório")
	}
	return a, nil
}

func (s *service) Addresses(ctx context.Context) ([]ledger.ContributorAddress, error) {
	return s.repo.ListAddresses(ctx)
}

// AddAddress attaches an address to a contributor that has none, such as rows
// imported without one. Contributors registered through Create already carry
// their address, so for them it fails with ErrConflict.
func (s *service) AddAddress(ctx context.Context, a ledger.ContributorAddress) (ledger.ContributorAddress, error) {
	a, err := s.ValidateAddress(a)
	if err != nil {
		return ledger.ContributorAddress{}, err
	}
	if _, err := s.repo.GetContributor(ctx, a.ContributorID); err != nil {
		return ledger.ContributorAddress{}, err
	}
	if err := s.writer.AddAddress(ctx, a); err != nil {
		return ledger.ContributorAddress{}, err
	}
	return a, nil
}

// normalizeCPF keeps only digits so "123.456.789-00" and "12345678900" collide.
func normalizeCPF(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return s
	}
	return b.String()
}
