package main

import (
	"fmt"
	"log/slog"
	"os"

	mod "github.com/OkarFabianTheWise/nifes/internal/config"
	"github.com/OkarFabianTheWise/nifes/internal/handlers"
	"github.com/OkarFabianTheWise/nifes/internal/qr"
	"github.com/OkarFabianTheWise/nifes/internal/store"

	"github.com/gin-gonic/gin"
	flag "github.com/spf13/pflag"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: ./config.yaml if present)")
	flag.Parse()

	cfg, err := mod.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(log)

	// init DB
	db, err := store.InitDB(cfg.DBPath)
	if err != nil {
		log.Error("failed to init db", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	store.SetDB(db)

	gin.SetMode(gin.ReleaseMode)
	h := handlers.New(store.GetDB(), qr.NewPNGRenderer(), cfg.FrontendURL, log)
	r := handlers.NewEngine(h, cfg.CORSOrigin)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info("server running", "addr", addr, "frontend_url", cfg.FrontendURL)
	if err := r.Run(addr); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
