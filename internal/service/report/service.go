// Package report computes the monthly cash report ("relatório de caixa"): period totals,
// the configured category breakdown and the balance carried forward from the previous month.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"golang.org/x/sync/errgroup"

	"github.com/tinoosan/tesouraria/internal/errs"
	"github.com/tinoosan/tesouraria/internal/ledger"
)

// Repo defines the aggregate reads the engine needs.
type Repo interface {
	// SumEntries returns the sum of amounts of entries in the period with the given direction.
	SumEntries(ctx context.Context, p ledger.Period, dir ledger.Direction) (money.Amount, error)
	// SumIncomingByCategory returns incoming sums for the given tags. Tags without entries may be absent.
	SumIncomingByCategory(ctx context.Context, p ledger.Period, categories []string) (map[string]money.Amount, error)
	// LatestSnapshot returns the most recently recorded snapshot of the period.
	LatestSnapshot(ctx context.Context, p ledger.Period) (ledger.BalanceSnapshot, bool, error)
}

// Writer records closing balances. Only administrative commands use it.
type Writer interface {
	SaveSnapshot(ctx context.Context, s ledger.BalanceSnapshot) (ledger.BalanceSnapshot, error)
}

// CategoryTotal is one line of the category breakdown.
type CategoryTotal struct {
	Category string
	Total    money.Amount
}

// Report is the monthly cash report.
type Report struct {
	Period     ledger.Period
	Opening    money.Amount
	Incoming   money.Amount
	Outgoing   money.Amount
	Closing    money.Amount
	GrandTotal money.Amount
	// Categories follows the configured order and always lists every configured tag.
	Categories []CategoryTotal
}

type Service interface {
	ComputeMonthly(ctx context.Context, month, year int) (Report, error)
	// CloseMonth computes the report and records its closing balance as the period's snapshot.
	CloseMonth(ctx context.Context, month, year int) (ledger.BalanceSnapshot, error)
	// RecordSnapshot stores a closing balance typed in by an operator.
	RecordSnapshot(ctx context.Context, month, year int, closing money.Amount) (ledger.BalanceSnapshot, error)
}

type service struct {
	repo       Repo
	writer     Writer
	categories []string
	log        *slog.Logger
	now        func() time.Time
}

// New builds the engine. writer may be nil when snapshots are never written by this process.
func New(repo Repo, writer Writer, categories []string, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	cats := make([]string, len(categories))
	copy(cats, categories)
	return &service{repo: repo, writer: writer, categories: cats, log: logger, now: time.Now}
}

func (s *service) ComputeMonthly(ctx context.Context, month, year int) (Report, error) {
	p, err := ledger.NewPeriod(month, year)
	if err != nil {
		return Report{}, err
	}
	var (
		incoming, outgoing money.Amount
		byCategory         map[string]money.Amount
		snap               ledger.BalanceSnapshot
		found              bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.repo.SumEntries(gctx, p, ledger.DirectionIncoming)
		incoming = v
		return err
	})
	g.Go(func() error {
		v, err := s.repo.SumEntries(gctx, p, ledger.DirectionOutgoing)
		outgoing = v
		return err
	})
	g.Go(func() error {
		v, err := s.repo.SumIncomingByCategory(gctx, p, s.categories)
		byCategory = v
		return err
	})
	g.Go(func() error {
		v, ok, err := s.repo.LatestSnapshot(gctx, p.Prev())
		snap, found = v, ok
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, storageErr(err)
	}

	opening := ledger.Zero()
	if found {
		opening = snap.Closing
	}
	closing, err := opening.Add(incoming)
	if err != nil {
		return Report{}, fmt.Errorf("closing balance: %w", err)
	}
	grand := closing
	if closing, err = closing.Sub(outgoing); err != nil {
		return Report{}, fmt.Errorf("closing balance: %w", err)
	}

	r := Report{
		Period:     p,
		Opening:    opening,
		Incoming:   incoming,
		Outgoing:   outgoing,
		Closing:    closing,
		GrandTotal: grand,
		Categories: make([]CategoryTotal, 0, len(s.categories)),
	}
	breakdown := ledger.Zero()
	for _, c := range s.categories {
		v, ok := byCategory[c]
		if !ok {
			v = ledger.Zero()
		}
		r.Categories = append(r.Categories, CategoryTotal{Category: c, Total: v})
		if breakdown, err = breakdown.Add(v); err != nil {
			return Report{}, fmt.Errorf("category breakdown: %w", err)
		}
	}
	rest, err := incoming.Sub(breakdown)
	if err != nil {
		return Report{}, fmt.Errorf("category breakdown: %w", err)
	}
	if rest.IsPos() {
		s.log.DebugContext(ctx, "incoming outside report categories", "period", p.String(), "amount", ledger.FormatAmount(rest))
	}
	return r, nil
}

func (s *service) CloseMonth(ctx context.Context, month, year int) (ledger.BalanceSnapshot, error) {
	r, err := s.ComputeMonthly(ctx, month, year)
	if err != nil {
		return ledger.BalanceSnapshot{}, err
	}
	return s.save(ctx, r.Period, r.Closing)
}

func (s *service) RecordSnapshot(ctx context.Context, month, year int, closing money.Amount) (ledger.BalanceSnapshot, error) {
	p, err := ledger.NewPeriod(month, year)
	if err != nil {
		return ledger.BalanceSnapshot{}, err
	}
	if closing.Curr().Code() != ledger.Currency {
		return ledger.BalanceSnapshot{}, errs.Invalid("saldo", "moeda não suportada")
	}
	return s.save(ctx, p, closing)
}

func (s *service) save(ctx context.Context, p ledger.Period, closing money.Amount) (ledger.BalanceSnapshot, error) {
	if s.writer == nil {
		return ledger.BalanceSnapshot{}, fmt.Errorf("snapshot writer not configured")
	}
	snap := ledger.BalanceSnapshot{ID: uuid.New(), Period: p, Closing: closing, RecordedAt: s.now().UTC()}
	saved, err := s.writer.SaveSnapshot(ctx, snap)
	if err != nil {
		return ledger.BalanceSnapshot{}, storageErr(err)
	}
	return saved, nil
}

// Totals returns the breakdown as a map keyed by category tag.
func (r Report) Totals() map[string]money.Amount {
	out := make(map[string]money.Amount, len(r.Categories))
	for _, c := range r.Categories {
		out[c.Category] = c.Total
	}
	return out
}

func storageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errs.ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", errs.ErrStorageUnavailable, err)
}
