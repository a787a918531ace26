// Command migrate applies or inspects the schema of one service database.
package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	analyticsmigrations "pulsetrack/services/analytics-service/migrations"
	authmigrations "pulsetrack/services/auth-service/migrations"
	patientmigrations "pulsetrack/services/patient-service/migrations"
	sharedcfg "pulsetrack/shared/config"
	"pulsetrack/shared/migrate"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type target struct {
	fsys   fs.FS
	dbName string
}

var targets = map[string]target{
	"auth":      {fsys: authmigrations.FS, dbName: "auth"},
	"patient":   {fsys: patientmigrations.FS, dbName: "patients"},
	"analytics": {fsys: analyticsmigrations.FS, dbName: "analytics"},
}

func serviceNames() []string {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(service string) (target, error) {
	t, ok := targets[service]
	if !ok {
		return target{}, fmt.Errorf("unknown service %q (want one of %s)", service, strings.Join(serviceNames(), ", "))
	}
	return t, nil
}

// withRunner connects to the service database and hands fn a migration
// runner. DATABASE_URL and DB_* apply as they do for the services.
func withRunner(ctx context.Context, service string, fn func(*migrate.Runner) error) error {
	t, err := lookup(service)
	if err != nil {
		return err
	}
	logger, err := sharedcfg.NewLogger("migrate")
	if err != nil {
		return err
	}
	defer logger.Sync()

	pool, err := sharedcfg.ConnectDB(ctx, sharedcfg.LoadDBConfig(t.dbName), logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	runner, err := migrate.New(pool, t.fsys, logger.With(zap.String("target", service)))
	if err != nil {
		return err
	}
	defer runner.Close()
	return fn(runner)
}

func printStatus(w io.Writer, statuses []*goose.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-45s %-10s %s\n", "VERSION", "FILE", "STATE", "APPLIED AT")
	for _, s := range statuses {
		appliedAt := ""
		if s.State == goose.StateApplied && !s.AppliedAt.IsZero() {
			appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
		}
		var version int64
		path := ""
		if s.Source != nil {
			version, path = s.Source.Version, s.Source.Path
		}
		fmt.Fprintf(w, "%-10d %-45s %-10s %s\n", version, path, s.State, appliedAt)
	}
}

func newRootCmd(ctx context.Context) *cobra.Command {
	var service string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage service database migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := lookup(service)
			return err
		},
	}
	root.PersistentFlags().StringVarP(&service, "service", "s", "", "service whose schema to manage ("+strings.Join(serviceNames(), "|")+")")
	root.MarkPersistentFlagRequired("service")

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(ctx, service, func(r *migrate.Runner) error {
				return r.Up(ctx)
			})
		},
	})

	var to int64
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration, or down to --to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if to < 0 {
				return fmt.Errorf("--to must not be negative")
			}
			return withRunner(ctx, service, func(r *migrate.Runner) error {
				return r.Down(ctx, to)
			})
		},
	}
	down.Flags().Int64Var(&to, "to", 0, "target version to keep; 0 rolls back one migration")
	root.AddCommand(down)

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(ctx, service, func(r *migrate.Runner) error {
				statuses, err := r.Status(ctx)
				if err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	})
	return root
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Migrate: No .env file found, relying on system env vars")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(ctx).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
