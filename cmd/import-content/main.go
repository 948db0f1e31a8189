// Package main loads effect, skill and weapon YAML files, validates them as
// a set, and upserts them into the PostgreSQL catalog tables.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cory-johannsen/combatstate/internal/config"
	"github.com/cory-johannsen/combatstate/internal/content"
	"github.com/cory-johannsen/combatstate/internal/importer"
	"github.com/cory-johannsen/combatstate/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	effectsDir := flag.String("effects", "", "status effect YAML directory (default: content.effects_dir)")
	skillsDir := flag.String("skills", "", "skill YAML directory (default: content.skills_dir)")
	weaponsDir := flag.String("weapons", "", "weapon YAML directory (default: content.weapons_dir)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	src := content.DirSource{
		EffectsDir: orDefault(*effectsDir, cfg.Content.EffectsDir),
		SkillsDir:  orDefault(*skillsDir, cfg.Content.SkillsDir),
		WeaponsDir: orDefault(*weaponsDir, cfg.Content.WeaponsDir),
	}
	if src.EffectsDir == "" || src.SkillsDir == "" || src.WeaponsDir == "" {
		fmt.Fprintln(os.Stderr, "usage: import-content [-config <file>] [-effects <dir>] [-skills <dir>] [-weapons <dir>]")
		os.Exit(1)
	}

	ctx := context.Background()
	start := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	imp := importer.New(src, postgres.NewCatalogRepository(pool), os.Stdout)
	if _, err := imp.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		pool.Close()
		os.Exit(1)
	}
	fmt.Printf("import complete in %s\n", time.Since(start).Round(time.Millisecond))
}

func orDefault(flagVal, cfgVal string) string {
	if flagVal != "" {
		return flagVal
	}
	return cfgVal
}
