package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/streed/synapse/internal/config"
	"github.com/streed/synapse/internal/database"
	"github.com/streed/synapse/internal/migrations"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration management",
	Long: `Manage schema migrations of the SQLite graph and vector databases.

Migrations run automatically whenever the stores are opened, so these
commands are mostly useful for troubleshooting.`,
}

var migrateStatusCmd = &cobra.Command{
	Use:         "status",
	Short:       "Show the status of database migrations",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationSkipServices: "true"},
	RunE:        showMigrationStatus,
}

var migrateRunCmd = &cobra.Command{
	Use:         "run",
	Short:       "Run pending database migrations",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationSkipServices: "true"},
	RunE:        runMigrations,
}

var migrateRollbackCmd = &cobra.Command{
	Use:         "rollback <graph|vector> <migration-id>",
	Short:       "Roll back one applied migration",
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{annotationSkipServices: "true"},
	RunE:        rollbackMigration,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
	migrateCmd.AddCommand(migrateRunCmd)
	migrateCmd.AddCommand(migrateRollbackCmd)
}

type schemaTarget struct {
	name string
	path string
	set  []migrations.Migration
}

func schemaTargets(cfg *config.Config) []schemaTarget {
	var targets []schemaTarget
	if cfg.GraphBackend == config.GraphBackendSQLite {
		targets = append(targets, schemaTarget{name: "graph", path: cfg.GetGraphDatabasePath(), set: migrations.Graph()})
	}
	return append(targets, schemaTarget{name: "vector", path: cfg.GetVectorDatabasePath(), set: migrations.Vector()})
}

// withRunner opens the target database for the duration of fn.
func withRunner(target schemaTarget, fn func(*migrations.MigrationRunner) error) error {
	db, err := database.Open(target.path)
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", target.name, err)
	}
	defer db.Close()
	return fn(migrations.NewMigrationRunner(db.Conn(), target.set))
}

func showMigrationStatus(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if appConfig.GraphBackend != config.GraphBackendSQLite {
		fmt.Fprintf(out, "Graph backend %s manages its own schema.\n\n", appConfig.GraphBackend)
	}

	for _, target := range schemaTargets(appConfig) {
		err := withRunner(target, func(runner *migrations.MigrationRunner) error {
			status, err := runner.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get %s migration status: %w", target.name, err)
			}
			printMigrationStatus(out, target, status)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func printMigrationStatus(out io.Writer, target schemaTarget, status []migrations.MigrationStatus) {
	fmt.Fprintf(out, "%s database (%s)\n", target.name, target.path)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "MIGRATION ID\tSTATUS\tDESCRIPTION\n")
	fmt.Fprintf(w, "------------\t------\t-----------\n")

	appliedCount := 0
	for _, migration := range status {
		statusText := "PENDING"
		if migration.Applied {
			statusText = "APPLIED"
			appliedCount++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", migration.ID, statusText, migration.Description)
	}
	w.Flush()

	fmt.Fprintf(out, "Applied: %d, Pending: %d\n\n", appliedCount, len(status)-appliedCount)
}

func runMigrations(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	for _, target := range schemaTargets(appConfig) {
		err := withRunner(target, func(runner *migrations.MigrationRunner) error {
			count, err := runner.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to run %s migrations: %w", target.name, err)
			}
			fmt.Fprintf(out, "%s: applied %d migrations\n", target.name, count)
			return nil
		})
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(out, "Migration run completed successfully!")
	return nil
}

func rollbackMigration(cmd *cobra.Command, args []string) error {
	name, id := args[0], args[1]
	for _, target := range schemaTargets(appConfig) {
		if target.name != name {
			continue
		}
		return withRunner(target, func(runner *migrations.MigrationRunner) error {
			if err := runner.Rollback(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %s migration %s\n", name, id)
			return nil
		})
	}
	return fmt.Errorf("unknown database %q (expected graph or vector)", name)
}
