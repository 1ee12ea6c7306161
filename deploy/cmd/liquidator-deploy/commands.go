package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pwollemi/liquidator/deploy/ledger"
	"github.com/pwollemi/liquidator/deploy/migrate"
)

type report struct {
	Network         string            `json:"network"`
	Implementations map[string]string `json:"implementations,omitempty"`
	Proxies         map[string]string `json:"proxies,omitempty"`
	Contracts       map[string]string `json:"contracts,omitempty"`
}

func newMigrateCmd(a *app) *cobra.Command {
	var opts migrate.Options
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run pending migrations in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMigrations(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.To, "to", 0, "stop after this migration id")
	cmd.Flags().BoolVar(&opts.Reset, "reset", false, "forget recorded deployments on this network and run everything")
	return cmd
}

func newDeployCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy <migration>",
		Short: "Run a single migration by name, contract or id",
		Long: `Runs one migration regardless of recorded progress.

Example:
  liquidator-deploy deploy swaprepaytool --network heco`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := migrate.Lookup(args[0]); err != nil {
				return err
			}
			return a.runMigrations(cmd, migrate.Options{Only: args[0]})
		},
	}
}

func (a *app) runMigrations(cmd *cobra.Command, opts migrate.Options) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	out := cmd.OutOrStdout()
	banner := out
	if a.jsonOut {
		banner = io.Discard
	}

	s, err := a.open(ctx, cfg, banner, true)
	if err != nil {
		return err
	}
	defer s.Close()

	recs, err := migrate.NewRunner(s.env).Run(ctx, opts)
	if a.jsonOut && len(recs) > 0 {
		if werr := writeReport(out, a.network, recs); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

func writeReport(w io.Writer, network string, recs []ledger.Record) error {
	out := report{
		Network:         network,
		Implementations: map[string]string{},
		Proxies:         map[string]string{},
		Contracts:       map[string]string{},
	}
	for _, rec := range recs {
		if rec.Implementation != "" {
			out.Implementations[rec.Contract] = rec.Implementation
			out.Proxies[rec.Contract] = rec.Address
			continue
		}
		out.Contracts[rec.Contract] = rec.Address
	}
	blob, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(blob))
	return err
}

func newPlanCmd(a *app) *cobra.Command {
	var opts migrate.Options
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show pending migrations and their resolved arguments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			s, err := a.open(cmd.Context(), cfg, cmd.OutOrStdout(), false)
			if err != nil {
				return err
			}
			defer s.Close()

			plans, err := migrate.NewRunner(s.env).Plan(opts)
			if err != nil {
				return err
			}
			if len(plans) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: nothing to migrate\n", a.network)
				return nil
			}
			return renderTable(cmd.OutOrStdout(), []string{"ID", "Migration", "Contract", "Proxied", "Arguments"}, planRows(plans))
		},
	}
	cmd.Flags().IntVar(&opts.To, "to", 0, "stop after this migration id")
	cmd.Flags().BoolVar(&opts.Reset, "reset", false, "plan as if nothing was deployed")
	return cmd
}

func planRows(plans []migrate.Plan) [][]string {
	rows := make([][]string, 0, len(plans))
	for _, p := range plans {
		var args string
		if p.Err != nil {
			args = "error: " + p.Err.Error()
		} else {
			parts := make([]string, 0, len(p.Step.Args))
			for _, arg := range p.Step.Args {
				v := arg.Value
				if arg.Pending {
					v = "<" + strings.TrimPrefix(arg.Source, "ledger:") + ">"
				}
				parts = append(parts, arg.Name+"="+v)
			}
			args = strings.Join(parts, " ")
		}
		rows = append(rows, []string{
			fmt.Sprint(p.Migration.ID),
			p.Migration.Name,
			p.Migration.Contract,
			fmt.Sprint(p.Step.Proxied),
			args,
		})
	}
	return rows
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List recorded deployments on the network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			s, err := a.open(cmd.Context(), cfg, cmd.OutOrStdout(), false)
			if err != nil {
				return err
			}
			defer s.Close()

			recs, err := s.ledger.List(a.network)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeReport(cmd.OutOrStdout(), a.network, recs)
			}

			last, err := s.ledger.LastCompleted(a.network)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "network %s: last completed migration %d of %d\n", a.network, last, len(migrate.All()))
			if len(recs) == 0 {
				return nil
			}
			return renderTable(cmd.OutOrStdout(), []string{"Migration", "Contract", "Address", "Implementation", "Tx", "Deployed"}, statusRows(recs))
		},
	}
}

func statusRows(recs []ledger.Record) [][]string {
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, []string{
			fmt.Sprint(rec.Migration),
			rec.Contract,
			rec.Address,
			rec.Implementation,
			rec.TxHash,
			rec.Time().Format(time.RFC3339),
		})
	}
	return rows
}

func renderTable(w io.Writer, headers []string, data [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	if err := table.Bulk(data); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	return nil
}
