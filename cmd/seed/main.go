// Command seed fills the database with demo users, proposals and swaps.
package main

import (
	"context"
	"flag"
	"log"

	"skillswap/internal/config"
	"skillswap/internal/database"
	"skillswap/internal/seed"
)

func main() {
	presetName := flag.String("preset", "small", "Built-in preset to apply (small|demo)")
	presetFile := flag.String("file", "", "Path to a YAML preset; overrides -preset")
	clean := flag.Bool("clean", false, "Clear lifecycle tables before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	var (
		preset *seed.Preset
		err    error
	)
	if *presetFile != "" {
		preset, err = seed.LoadPresetFile(*presetFile)
	} else {
		preset, err = seed.LoadPreset(*presetName)
	}
	if err != nil {
		log.Fatalf("❌ Invalid preset: %v", err)
	}
	if *clean {
		preset.Clean = true
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	stats, err := seed.Seed(context.Background(), db, preset)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	log.Printf("✅ Done: %s", stats)
}
