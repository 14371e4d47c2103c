// Command plot-workout renders a stored workout's elbow angle trace to a PNG
// and prints its summary.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/pushup.report/internal/config"
	"github.com/banshee-data/pushup.report/internal/db"
	"github.com/banshee-data/pushup.report/internal/report"
	"github.com/banshee-data/pushup.report/internal/security"
)

func run(ctx context.Context, database *db.DB, workoutID, userID, output string, depthTarget float64, out io.Writer) error {
	if workoutID == "" {
		list, err := database.Workouts(ctx, userID, 1)
		if err != nil {
			return fmt.Errorf("failed to list workouts: %w", err)
		}
		if len(list) == 0 {
			return errors.New("no workouts recorded")
		}
		workoutID = list[0].ID
	}

	w, err := database.Workout(ctx, workoutID)
	if err != nil {
		return fmt.Errorf("failed to load workout %s: %w", workoutID, err)
	}
	events, err := database.RepEvents(ctx, w.ID)
	if err != nil {
		return err
	}
	samples, err := database.AngleSamples(ctx, w.ID)
	if err != nil {
		return err
	}

	if output == "" {
		output = security.SanitizeFilename("workout-"+w.ID) + ".png"
	}
	if err := report.SavePNG(output, w, events, samples); err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report.Summarize(w, events, samples, depthTarget)); err != nil {
		return err
	}
	log.Printf("✓ Created: %s (%d reps, %d samples)", output, len(events), len(samples))
	return nil
}

func main() {
	dbPath := flag.String("db", "pushup.db", "path to the sqlite database")
	workoutID := flag.String("workout", "", "workout id (default: most recent)")
	userID := flag.String("user", "", "user whose most recent workout is plotted")
	output := flag.String("o", "", "output PNG path (default: workout-<id>.png)")
	configPath := flag.String("config", "", "tuning config for the depth target")
	flag.Parse()

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadTuningConfig(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	database, err := db.OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if err := run(context.Background(), database, *workoutID, *userID, *output, cfg.GetElbowDepthDeg(), os.Stdout); err != nil {
		log.Fatal(err)
	}
}
