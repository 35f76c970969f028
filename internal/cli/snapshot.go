package cli

import (
	"fmt"
	"strings"

	"github.com/govalues/money"
	"github.com/spf13/cobra"

	"github.com/tinoosan/tesouraria/internal/config"
	"github.com/tinoosan/tesouraria/internal/dictionary"
	"github.com/tinoosan/tesouraria/internal/ledger"
	"github.com/tinoosan/tesouraria/internal/service/report"
)

func newSnapshotCmd() *cobra.Command {
	snap := &cobra.Command{
		Use:   "snapshot",
		Short: "Record closing balances used as the next month's opening balance",
	}

	var month, year int
	closeCmd := &cobra.Command{
		Use:   "close",
		Short: "Compute the month's report and record its closing balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReports(cmd, func(svc report.Service) error {
				s, err := svc.CloseMonth(cmd.Context(), month, year)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saldo de %s registrado: %s\n", s.Period, ledger.FormatAmount(s.Closing))
				return nil
			})
		},
	}

	var balance string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Record a closing balance by hand, e.g. when migrating from paper books",
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := parseBalance(balance)
			if err != nil {
				return err
			}
			return withReports(cmd, func(svc report.Service) error {
				s, err := svc.RecordSnapshot(cmd.Context(), month, year, amt)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saldo de %s registrado: %s\n", s.Period, ledger.FormatAmount(s.Closing))
				return nil
			})
		},
	}
	setCmd.Flags().StringVar(&balance, "saldo", "", "Closing balance, e.g. 1234.56 (may be negative)")
	_ = setCmd.MarkFlagRequired("saldo")

	for _, c := range []*cobra.Command{closeCmd, setCmd} {
		c.Flags().IntVar(&month, "mes", 0, "Month (1-12)")
		c.Flags().IntVar(&year, "ano", 0, "Year")
		_ = c.MarkFlagRequired("mes")
		_ = c.MarkFlagRequired("ano")
		snap.AddCommand(c)
	}
	return snap
}

// parseBalance accepts a signed amount with "." or "," as decimal separator.
func parseBalance(s string) (money.Amount, error) {
	a, err := money.ParseAmount(ledger.Currency, strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil {
		return money.Amount{}, fmt.Errorf("invalid --saldo %q: %w", s, err)
	}
	return a, nil
}

func withReports(cmd *cobra.Command, fn func(report.Service) error) error {
	cfg, logger, err := loadConfig(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	if cfg.ResolvedBackend() == config.BackendMemory {
		return fmt.Errorf("snapshots need a persistent backend (postgres or sqlite)")
	}
	b, err := openBackend(cmd.Context(), cfg, false, logger)
	if err != nil {
		return err
	}
	defer b.closeFn()
	cats := dictionary.New(cfg.Report.Categories)
	return fn(report.New(b, b, cats.ReportCategories(), logger))
}
