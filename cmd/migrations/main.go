package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/vncsmyrnk/tally/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/tally/internal/config"
)

// Usage: migrations [-database-url URL] [-dir DIR] <migration name>
//
// The name may be any unique suffix of a file in the migrations directory,
// e.g. "create_kv_store.up".
func main() {
	config.LoadDotEnv()

	var databaseURL, dir string
	flag.StringVar(&databaseURL, "database-url", "", "Postgres connection string (default DATABASE_URL or POSTGRES_* env)")
	flag.StringVar(&dir, "dir", filepath.Join(".", "internal", "adapters", "repository", "postgres", "migrations"), "Migrations directory")
	flag.Parse()

	if flag.NArg() < 1 {
		slog.Error("a migration name is required")
		os.Exit(1)
	}
	migrationName := flag.Arg(0)

	if databaseURL == "" {
		databaseURL = config.PostgresURL()
	}
	if databaseURL == "" {
		slog.Error("database URL required (use -database-url, DATABASE_URL or POSTGRES_* env)")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := postgres.Connect(ctx, databaseURL)
	if err != nil {
		slog.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	fileName, content, err := migrationFileContent(dir, migrationName)
	if err != nil {
		slog.Error("failed to read migration", "name", migrationName, "error", err)
		os.Exit(1)
	}

	if _, err := db.ExecContext(ctx, string(content)); err != nil {
		slog.Error("failed to execute migration", "file", fileName, "error", err)
		os.Exit(1)
	}

	slog.Info("migration executed", "file", fileName)
}

func migrationFileContent(basePath, migrationName string) (string, []byte, error) {
	fileName, err := migrationFileName(basePath, migrationName)
	if err != nil {
		return "", nil, err
	}

	content, err := os.ReadFile(filepath.Join(basePath, fileName))
	if err != nil {
		return "", nil, err
	}
	return fileName, content, nil
}

func migrationFileName(basePath, migrationName string) (string, error) {
	pattern := regexp.MustCompile(fmt.Sprintf(`^.*%s\.sql$`, regexp.QuoteMeta(migrationName)))

	files, err := os.ReadDir(basePath)
	if err != nil {
		return "", fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var matches []string
	for _, f := range files {
		if !f.IsDir() && pattern.MatchString(f.Name()) {
			matches = append(matches, f.Name())
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("migration file not found")
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("migration name is ambiguous: %v", matches)
	}
}
