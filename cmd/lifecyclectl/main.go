package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opsledger/lifecycle-service/internal/auth"
	"github.com/opsledger/lifecycle-service/internal/clock"
	"github.com/opsledger/lifecycle-service/internal/config"
	"github.com/opsledger/lifecycle-service/internal/domain"
	"github.com/opsledger/lifecycle-service/internal/observability"
	"github.com/opsledger/lifecycle-service/internal/persistence"
	"github.com/opsledger/lifecycle-service/internal/repository"
	"github.com/opsledger/lifecycle-service/internal/service"
	"github.com/opsledger/lifecycle-service/internal/sla"
	"github.com/opsledger/lifecycle-service/internal/transition"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lifecyclectl",
		Short:         "Inspect lifecycle tables and run maintenance sweeps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("json", false, "output JSON")
	root.AddCommand(newTransitionsCmd(), newPolicyCmd(), newSweepCmd(), newTokenCmd())
	return root
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTableWriter(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	return tw
}

func newTransitionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transitions [kind]",
		Short: "Print the status transition table of one or every entity kind",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := domain.EntityKinds
			if len(args) == 1 {
				kind, ok := domain.ParseEntityKind(args[0])
				if !ok {
					return fmt.Errorf("unknown entity kind %q", args[0])
				}
				kinds = []domain.EntityKind{kind}
			}

			type row struct {
				Kind     string   `json:"kind"`
				Status   string   `json:"status"`
				Initial  bool     `json:"initial"`
				Terminal bool     `json:"terminal"`
				Next     []string `json:"next"`
			}
			var rows []row
			for _, kind := range kinds {
				initial, err := transition.Initial(kind)
				if err != nil {
					return err
				}
				states, err := transition.States(kind)
				if err != nil {
					return err
				}
				for _, state := range states {
					next, err := transition.Available(kind, state)
					if err != nil {
						return err
					}
					terminal, err := transition.IsTerminal(kind, state)
					if err != nil {
						return err
					}
					rows = append(rows, row{Kind: string(kind), Status: state, Initial: state == initial, Terminal: terminal, Next: next})
				}
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			tw := newTableWriter(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Kind", "Status", "Initial", "Terminal", "Next"})
			for _, r := range rows {
				tw.AppendRow(table.Row{r.Kind, r.Status, mark(r.Initial), mark(r.Terminal), joinOr(r.Next, "-")})
			}
			tw.Render()
			return nil
		},
	}
}

func newPolicyCmd() *cobra.Command {
	var (
		file  string
		orgID string
	)
	cmd := &cobra.Command{
		Use:   "sla-policy",
		Short: "Print the effective SLA targets per priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("file") {
				file = os.Getenv("SLA_POLICY_FILE")
			}
			policies, err := sla.LoadTable(file)
			if err != nil {
				return err
			}

			type row struct {
				Priority   string `json:"priority"`
				Response   string `json:"response"`
				Resolution string `json:"resolution"`
			}
			policy := policies.For(orgID)
			rows := make([]row, 0, len(domain.TicketPriorities))
			for _, p := range domain.TicketPriorities {
				response, err := policy.ResponseTarget(p)
				if err != nil {
					return err
				}
				resolution, err := policy.ResolutionTarget(p)
				if err != nil {
					return err
				}
				rows = append(rows, row{Priority: string(p), Response: response.String(), Resolution: resolution.String()})
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			tw := newTableWriter(cmd.OutOrStdout())
			title := "default policy"
			if orgID != "" {
				title = "policy for " + orgID
			}
			tw.SetTitle(title)
			tw.AppendHeader(table.Row{"Priority", "Response", "Resolution"})
			for _, r := range rows {
				tw.AppendRow(table.Row{r.Priority, r.Response, r.Resolution})
			}
			tw.Render()
			if tenants := policies.Tenants(); len(tenants) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "tenants with overrides: %s\n", joinOr(tenants, "-"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML policy file (defaults to SLA_POLICY_FILE)")
	cmd.Flags().StringVar(&orgID, "org", "", "tenant whose overrides to apply")
	return cmd
}

func newSweepCmd() *cobra.Command {
	var window time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one overdue sweep and SLA breach scan against the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Postgres.DSN == "" {
				return fmt.Errorf("POSTGRES_DSN is required")
			}
			logger, err := observability.NewLogger(cfg.Logger)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
			if err != nil {
				return err
			}
			defer pg.Close()
			policies, err := sla.LoadTable(cfg.SLA.PolicyFile)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("window") {
				window = cfg.SLA.AtRiskWindow()
			}

			svc := service.NewLifecycleService(service.LifecycleDependencies{
				Store:    repository.NewPostgresStore(pg.PoolHandle()),
				Clock:    clock.System(),
				Policies: policies,
				Logger:   logger.WithOptions(zap.IncreaseLevel(zap.WarnLevel)),
			})
			return runSweep(ctx, cmd.OutOrStdout(), svc, window, jsonOutput(cmd))
		},
	}
	cmd.Flags().DurationVar(&window, "window", time.Hour, "at-risk look-ahead window")
	return cmd
}

func runSweep(ctx context.Context, w io.Writer, svc *service.LifecycleService, window time.Duration, asJSON bool) error {
	moved, err := svc.SweepOverdue(ctx)
	if err != nil {
		return err
	}
	scan, err := svc.ScanBreaches(ctx, window)
	if err != nil {
		return err
	}

	type breachRow struct {
		TicketID string    `json:"ticket_id"`
		OrgID    string    `json:"org_id"`
		Priority string    `json:"priority"`
		Deadline string    `json:"deadline"`
		DueAt    time.Time `json:"due_at"`
	}
	rows := make([]breachRow, 0, len(scan.Breaches))
	for _, b := range scan.Breaches {
		rows = append(rows, breachRow{
			TicketID: b.Ticket.ID,
			OrgID:    b.Ticket.OrgID,
			Priority: string(b.Ticket.Priority),
			Deadline: string(b.Deadline),
			DueAt:    b.DueAt,
		})
	}

	if asJSON {
		return writeJSON(w, map[string]any{
			"invoices_overdue": moved,
			"at_risk":          scan.AtRisk,
			"breaches":         rows,
		})
	}
	fmt.Fprintf(w, "invoices moved to overdue: %d\nat-risk tickets: %d\n", moved, scan.AtRisk)
	tw := newTableWriter(w)
	tw.AppendHeader(table.Row{"Ticket", "Org", "Priority", "Deadline", "Due"})
	for _, r := range rows {
		tw.AppendRow(table.Row{r.TicketID, r.OrgID, r.Priority, r.Deadline, r.DueAt.Format(time.RFC3339)})
	}
	tw.Render()
	return nil
}

func newTokenCmd() *cobra.Command {
	var orgID, actorID string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a tenant and actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			tok, expiresAt, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes).GenerateToken(orgID, actorID)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"token": tok, "expires_at": expiresAt})
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&orgID, "org", "", "tenant id")
	cmd.Flags().StringVar(&actorID, "actor", "", "actor id")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func mark(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}
