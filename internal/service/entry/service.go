package entry

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/tinoosan/tesouraria/internal/errs"
	"github.com/tinoosan/tesouraria/internal/ledger"
)

// Repo defines read operations needed by the service.
type Repo interface {
	ListEntries(ctx context.Context) ([]ledger.Entry, error)
	GetEntry(ctx context.Context, id uuid.UUID) (ledger.Entry, error)
}

// Writer defines write operations needed by the service. Writers return errs.ErrInvalid
// when the contributor reference does not exist and errs.ErrNotFound for unknown entry ids.
type Writer interface {
	CreateEntry(ctx context.Context, e ledger.Entry) (ledger.Entry, error)
	UpdateEntry(ctx context.Context, e ledger.Entry) (ledger.Entry, error)
	DeleteEntry(ctx context.Context, id uuid.UUID) error
}

// Service exposes validation and CRUD of ledger entries.
type Service interface {
	Validate(e ledger.Entry) (ledger.Entry, error)
	Create(ctx context.Context, e ledger.Entry) (ledger.Entry, error)
	List(ctx context.Context) ([]ledger.Entry, error)
	Get(ctx context.Context, id uuid.UUID) (ledger.Entry, error)
	Update(ctx context.Context, e ledger.Entry) (ledger.Entry, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

func (s *service) Validate(e ledger.Entry) (ledger.Entry, error) {
	e.Category = strings.TrimSpace(e.Category)
	e.Note = strings.TrimSpace(e.Note)
	if !e.Direction.Valid() {
		return e, errs.Invalid("natureza", "deve ser Entrada ou Saida")
	}
	if e.Category == "" {
		return e, errs.Invalid("tipo_de_contribuicao", "obrigatório")
	}
	if !e.Amount.IsPos() {
		return e, errs.Invalid("valor", "deve ser maior que zero")
	}
	if e.Amount.Curr().Code() != ledger.Currency {
		return e, errs.Invalid("valor", "moeda não suportada")
	}
	if e.Date.IsZero() {
		return e, errs.Invalid("data_contribuicao", "obrigatória")
	}
	e.Date = ledger.Day(e.Date)
	if e.ContributorID != nil && *e.ContributorID == uuid.Nil {
		e.ContributorID = nil
	}
	return e, nil
}

func (s *service) Create(ctx context.Context, e ledger.Entry) (ledger.Entry, error) {
	e, err := s.Validate(e)
	if err != nil {
		return ledger.Entry{}, err
	}
	e.ID = uuid.New()
	return s.writer.CreateEntry(ctx, e)
}

func (s *service) List(ctx context.Context) ([]ledger.Entry, error) {
	return s.repo.ListEntries(ctx)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (ledger.Entry, error) {
	if id == uuid.Nil {
		return ledger.Entry{}, errs.ErrInvalid
	}
	return s.repo.GetEntry(ctx, id)
}

// Update replaces every mutable field of an existing entry.
func (s *service) Update(ctx context.Context, e ledger.Entry) (ledger.Entry, error) {
	if e.ID == uuid.Nil {
		return ledger.Entry{}, errs.ErrInvalid
	}
	e, err := s.Validate(e)
	if err != nil {
		return ledger.Entry{}, err
	}
	return s.writer.UpdateEntry(ctx, e)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errs.ErrInvalid
	}
	return s.writer.DeleteEntry(ctx, id)
}
