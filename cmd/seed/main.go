package main

import (
	"context"
	"log/slog"
	"os"

	mod "github.com/OkarFabianTheWise/nifes/internal/config"
	"github.com/OkarFabianTheWise/nifes/internal/members"
	"github.com/OkarFabianTheWise/nifes/internal/qr"
	"github.com/OkarFabianTheWise/nifes/internal/seed"
	"github.com/OkarFabianTheWise/nifes/internal/sessions"
	"github.com/OkarFabianTheWise/nifes/internal/store"

	flag "github.com/spf13/pflag"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	fixturePath := flag.StringP("fixture", "f", "", "YAML fixture (default: built-in sample members)")
	reset := flag.Bool("reset", false, "delete all members, sessions and attendance first")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg, err := mod.Load(*configPath)
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	fx, err := loadFixture(*fixturePath)
	if err != nil {
		log.Error("load fixture", "error", err)
		os.Exit(1)
	}

	db, err := store.InitDB(cfg.DBPath)
	if err != nil {
		log.Error("failed to init db", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	if *reset {
		if err := store.Reset(db); err != nil {
			log.Error("reset", "error", err)
			os.Exit(1)
		}
		log.Info("database reset", "path", cfg.DBPath)
	}

	ctx := context.Background()
	dir := members.NewDirectory(db)
	reg := sessions.NewRegistry(db, qr.NewPNGRenderer(), cfg.FrontendURL)
	sum, err := seed.Apply(ctx, dir, reg, fx)
	if err != nil {
		log.Error("seed", "error", err)
		os.Exit(1)
	}
	total, err := dir.Count(ctx)
	if err != nil {
		log.Error("count members", "error", err)
		os.Exit(1)
	}
	log.Info("seeded", "created", sum.Created, "existing", sum.Existing, "members_total", total)
	if sum.Session != nil {
		log.Info("active session", "name", sum.Session.Name, "id", sum.Session.ID, "qr", sum.Session.QRData)
	}
}

func loadFixture(path string) (seed.Fixture, error) {
	if path == "" {
		return seed.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return seed.Fixture{}, err
	}
	defer f.Close()
	return seed.Load(f)
}
