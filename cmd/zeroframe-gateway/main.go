// Package main is the entrypoint for zeroframe-gateway, which exposes a local ZeroNet
// instance's ZeroFrame command API over COMMS.
package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/zeroframe/internal/config"
	"github.com/morezero/zeroframe/internal/server"
	"github.com/morezero/zeroframe/pkg/db"
)

const usage = `Usage: zeroframe-gateway [command]
       zeroframe-gateway serve              Start the gateway (ZeroNet websocket, COMMS, HTTP health).
       zeroframe-gateway migrate up         Apply mirror store migrations.
       zeroframe-gateway migrate status     Show whether the mirror schema is present.
       zeroframe-gateway ensure-db [name]   Create the mirror database if missing (default: name in DATABASE_URL).
       zeroframe-gateway clear              Truncate mirrored rows; schema is preserved.

Environment: ZEROFRAME_UI_URL, ZEROFRAME_SITE or ZEROFRAME_WRAPPER_KEY, COMMS_URL, ZEROFRAME_ACL_FILE,
DATABASE_URL, MIGRATION_PATH, HTTP_PORT, LOG_LEVEL.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("zeroframe-gateway migrate: require subcommand (up, status)")
		}
		switch sub := args[1]; sub {
		case "up":
			if err := withPool(runMigrateUp); err != nil {
				log.Fatalf("zeroframe-gateway migrate up: %v", err)
			}
		case "status":
			if err := withPool(runMigrateStatus); err != nil {
				log.Fatalf("zeroframe-gateway migrate status: %v", err)
			}
		default:
			log.Fatalf("zeroframe-gateway migrate: unknown subcommand %q (use up, status)", sub)
		}
		return
	case "clear":
		if err := withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
			return db.ClearMirror(ctx, pool)
		}); err != nil {
			log.Fatalf("zeroframe-gateway clear: %v", err)
		}
		return
	case "ensure-db":
		name := ""
		if len(args) > 1 {
			name = args[1]
		}
		if err := runEnsureDB(name); err != nil {
			log.Fatalf("zeroframe-gateway ensure-db: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("zeroframe-gateway: %v", err)
	}
}

// withPool loads config, opens the mirror database and runs fn.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	server.SetupLogging(cfg.LogLevel)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}

func runMigrateUp(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
	migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runMigrateStatus(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
	applied, err := db.SchemaApplied(ctx, pool)
	if err != nil {
		return err
	}
	files, err := db.LoadMigrationFiles(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	fmt.Println(migrationStatusLine(applied, len(files), cfg.MigrationPath))
	return nil
}

func migrationStatusLine(applied bool, files int, path string) string {
	if applied {
		return fmt.Sprintf("Migration status: applied (schema present, %d migration files in %s)", files, path)
	}
	return fmt.Sprintf("Migration status: not applied (run 'zeroframe-gateway migrate up'). %d migration files in %s", files, path)
}

func runEnsureDB(name string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	target, err := databaseURLFor(cfg.DatabaseURL, name)
	if err != nil {
		return err
	}
	created, err := db.EnsureDatabase(context.Background(), target)
	if err != nil {
		return err
	}
	if created {
		fmt.Println("Database created.")
		return nil
	}
	fmt.Println("Database already exists.")
	return nil
}

// databaseURLFor swaps the database name in raw for name, keeping host, user and query.
func databaseURLFor(raw, name string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	if name != "" {
		u.Path = "/" + name
	}
	return u.String(), nil
}
