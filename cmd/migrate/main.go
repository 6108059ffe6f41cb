package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"coffeeshop-be/internal/config"
	"coffeeshop-be/internal/db"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		dbURL string
		dir   string
	)

	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply or roll back the coffee shop schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "postgres connection URL (defaults to DB_URL, then DB_* settings)")
	cmd.PersistentFlags().StringVar(&dir, "dir", "./migrations", "directory holding *.sql migrations")

	for _, mode := range []struct{ name, short string }{
		{"up", "Apply every pending migration"},
		{"down", "Roll back the latest applied migration"},
		{"status", "List migrations and whether they are applied"},
	} {
		mode := mode
		cmd.AddCommand(&cobra.Command{
			Use:   mode.name,
			Short: mode.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				database, err := openDB(dbURL)
				if err != nil {
					return err
				}
				defer database.Close()

				return run(database, mode.name, dir, cmd.OutOrStdout())
			},
		})
	}

	return cmd
}

func openDB(dbURL string) (*sql.DB, error) {
	_ = godotenv.Load()

	if dbURL == "" {
		dbURL = os.Getenv("DB_URL")
	}
	if dbURL != "" {
		database, err := sql.Open("postgres", dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect db: %w", err)
		}
		return database, nil
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	return db.NewDatabase(cfg)
}

func run(database *sql.DB, mode, migrationsDir string, out io.Writer) error {
	_, err := database.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	sort.Strings(files)

	switch mode {
	case "up":
		return runMigrationsUp(database, files, out)
	case "down":
		return runMigrationsDown(database, files, out)
	case "status":
		return printStatus(database, files, out)
	default:
		return fmt.Errorf("unknown mode: %s (use 'up', 'down' or 'status')", mode)
	}
}

func isApplied(database *sql.DB, version string) (bool, error) {
	var exists bool
	err := database.QueryRow(`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return exists, nil
}

// runMigrationsUp applies each pending file and records it in one transaction.
func runMigrationsUp(database *sql.DB, files []string, out io.Writer) error {
	for _, file := range files {
		version := filepath.Base(file)

		applied, err := isApplied(database, version)
		if err != nil {
			return err
		}
		if applied {
			fmt.Fprintf(out, "⏭ Skipping already applied migration: %s\n", version)
			continue
		}

		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}

		upSQL := extractMigrationPart(string(content), "Up")
		fmt.Fprintf(out, "🚀 Applying migration: %s\n", version)

		tx, err := database.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %s: %w", version, err)
		}
		if _, err := tx.Exec(upSQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration failed (%s): %w", version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", version, err)
		}
	}

	fmt.Fprintln(out, "✅ All new migrations applied successfully.")
	return nil
}

func runMigrationsDown(database *sql.DB, files []string, out io.Writer) error {
	var lastVersion string
	err := database.QueryRow(`SELECT version FROM schema_migrations ORDER BY applied_at DESC, version DESC LIMIT 1`).Scan(&lastVersion)
	if err == sql.ErrNoRows {
		fmt.Fprintln(out, "⚠️  No migrations to roll back.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get last applied migration: %w", err)
	}

	filePath := ""
	for _, f := range files {
		if filepath.Base(f) == lastVersion {
			filePath = f
			break
		}
	}
	if filePath == "" {
		return fmt.Errorf("migration file not found for version: %s", lastVersion)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	downSQL := extractMigrationPart(string(content), "Down")
	fmt.Fprintf(out, "🧹 Rolling back migration: %s\n", lastVersion)

	tx, err := database.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin rollback %s: %w", lastVersion, err)
	}
	if _, err := tx.Exec(downSQL); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("rollback failed (%s): %w", filePath, err)
	}
	if _, err := tx.Exec(`DELETE FROM schema_migrations WHERE version = $1`, lastVersion); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to remove migration record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rollback %s: %w", lastVersion, err)
	}

	fmt.Fprintln(out, "✅ Rollback successful.")
	return nil
}

func printStatus(database *sql.DB, files []string, out io.Writer) error {
	for _, file := range files {
		version := filepath.Base(file)

		applied, err := isApplied(database, version)
		if err != nil {
			return err
		}

		state := "pending"
		if applied {
			state = "applied"
		}
		fmt.Fprintf(out, "%-8s %s\n", state, version)
	}
	return nil
}

// extractMigrationPart returns the lines between "-- +migrate <section>" and
// the next marker.
func extractMigrationPart(content string, section string) string {
	lines := strings.Split(content, "\n")
	var part strings.Builder
	var inPart bool

	for _, line := range lines {
		if strings.Contains(line, "-- +migrate "+section) {
			inPart = true
			continue
		}
		if inPart && strings.HasPrefix(line, "-- +migrate") {
			break
		}
		if inPart {
			part.WriteString(line + "\n")
		}
	}
	return part.String()
}
