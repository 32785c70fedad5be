package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"futmap/internal/database"
	"futmap/internal/models"
	"futmap/internal/seed"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		seedPath = flag.String("seed", "configs/fields.example.yaml", "path to a YAML or TOML fields file")
		dbPath   = flag.String("db", "./data/futmap.db", "path to sqlite db")
		keep     = flag.Bool("keep-taken", true, "keep slots already taken in the db closed")
	)
	flag.Parse()

	fields, err := seed.Load(*seedPath)
	if err != nil {
		return fmt.Errorf("load seed: %w", err)
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	existing, err := db.LoadFields(ctx)
	if err != nil {
		return fmt.Errorf("load existing fields: %w", err)
	}
	byID := make(map[string]*models.Field, len(existing))
	for i := range existing {
		byID[existing[i].ID] = &existing[i]
	}

	created := 0
	updated := 0
	for i := range fields {
		old, ok := byID[fields[i].ID]
		if !ok {
			created++
			continue
		}
		updated++
		if *keep {
			closeTakenSlots(&fields[i], old)
		}
	}
	removed := len(existing) - updated

	if err := db.SaveFields(ctx, fields); err != nil {
		return fmt.Errorf("save fields: %w", err)
	}

	fmt.Printf("done: created=%d updated=%d removed=%d\n", created, updated, removed)
	return nil
}

// closeTakenSlots copies "taken" flags from the stored field onto the
// imported one for slots present in both.
func closeTakenSlots(dst, src *models.Field) {
	for i := range dst.Availability {
		s := &dst.Availability[i]
		for _, old := range src.Availability {
			if old.Matches(s.Date, s.StartTime) && !old.IsAvailable {
				s.IsAvailable = false
				break
			}
		}
	}
}
