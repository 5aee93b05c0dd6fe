package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/database"
)

// Applies the .up.sql or .down.sql files in lexical order (reversed for
// down). No version table: migrations are expected to be idempotent enough
// to rerun against a matching schema.
func main() {
	dir := flag.String("dir", "migrations", "directory containing migration files")
	flag.Parse()

	direction := flag.Arg(0)
	if direction != "up" && direction != "down" {
		log.Fatal("usage: go run scripts/run_migrations.go [-dir migrations] up|down")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.Connect(context.Background(), &cfg.Database)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer db.Close()

	entries, err := os.ReadDir(*dir)
	if err != nil {
		log.Fatalf("read migration directory: %v", err)
	}

	suffix := fmt.Sprintf(".%s.sql", direction)
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), suffix) {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	if direction == "down" {
		for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
			files[i], files[j] = files[j], files[i]
		}
	}

	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(*dir, name))
		if err != nil {
			log.Fatalf("read migration %s: %v", name, err)
		}

		log.Printf("running migration: %s", name)
		if _, err := db.Exec(string(content)); err != nil {
			log.Fatalf("execute migration %s: %v", name, err)
		}
	}

	log.Printf("ran %d migration(s) %s", len(files), direction)
}
