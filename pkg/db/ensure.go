package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const ensureLogPrefix = "db:ensure"

// maxIdentLen is Postgres' NAMEDATALEN-1; longer names are silently truncated.
const maxIdentLen = 63

// duplicateDatabase is the SQLSTATE CREATE DATABASE returns when the name is taken.
const duplicateDatabase = "42P04"

var mirrorDBName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// mirrorTarget is a parsed DATABASE_URL split into the database to create and
// the maintenance URL used to create it.
type mirrorTarget struct {
	name        string
	maintenance string
}

func parseMirrorTarget(databaseURL string) (mirrorTarget, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return mirrorTarget{}, fmt.Errorf("%s - invalid database URL: %w", ensureLogPrefix, err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return mirrorTarget{}, fmt.Errorf("%s - unsupported database URL scheme %q", ensureLogPrefix, u.Scheme)
	}

	name := u.Path
	if len(name) > 0 && name[0] == '/' {
		name = name[1:]
	}
	switch {
	case name == "":
		return mirrorTarget{}, fmt.Errorf("%s - database name empty in URL", ensureLogPrefix)
	case len(name) > maxIdentLen:
		return mirrorTarget{}, fmt.Errorf("%s - database name longer than %d bytes", ensureLogPrefix, maxIdentLen)
	case !mirrorDBName.MatchString(name):
		return mirrorTarget{}, fmt.Errorf("%s - database name %q must be a plain identifier", ensureLogPrefix, name)
	}

	maintenance := *u
	maintenance.Path = "/postgres"
	return mirrorTarget{name: name, maintenance: maintenance.String()}, nil
}

// EnsureDatabase creates the mirror database named in databaseURL through the
// server's postgres database. It reports whether the database was created;
// losing a creation race to another process counts as already present.
func EnsureDatabase(ctx context.Context, databaseURL string) (bool, error) {
	target, err := parseMirrorTarget(databaseURL)
	if err != nil {
		return false, err
	}

	connConfig, err := pgx.ParseConfig(target.maintenance)
	if err != nil {
		return false, fmt.Errorf("%s - failed to parse maintenance URL: %w", ensureLogPrefix, err)
	}
	connConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return false, fmt.Errorf("%s - failed to connect to postgres: %w", ensureLogPrefix, err)
	}
	defer conn.Close(ctx)

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, target.name).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s - failed to check database: %w", ensureLogPrefix, err)
	}
	if exists {
		return false, nil
	}

	slog.Info(fmt.Sprintf("%s - Creating mirror database %q", ensureLogPrefix, target.name))
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{target.name}.Sanitize()); err != nil {
		if isDuplicateDatabase(err) {
			return false, nil
		}
		return false, fmt.Errorf("%s - CREATE DATABASE failed: %w", ensureLogPrefix, err)
	}
	return true, nil
}

func isDuplicateDatabase(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == duplicateDatabase
}
