// Package main provides the idle daemon: it loads content, restores the
// configured character and advances it on a fixed tick, serving health and
// metrics over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/cory-johannsen/idlerpg/internal/config"
	"github.com/cory-johannsen/idlerpg/internal/game/dice"
	"github.com/cory-johannsen/idlerpg/internal/game/skill"
	"github.com/cory-johannsen/idlerpg/internal/game/spawn"
	"github.com/cory-johannsen/idlerpg/internal/gameserver"
	"github.com/cory-johannsen/idlerpg/internal/notify"
	"github.com/cory-johannsen/idlerpg/internal/observability"
	"github.com/cory-johannsen/idlerpg/internal/save"
	"github.com/cory-johannsen/idlerpg/internal/scripting"
	"github.com/cory-johannsen/idlerpg/internal/server"
	"github.com/cory-johannsen/idlerpg/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	seed := flag.Uint64("seed", 0, "seed for deterministic rolls; 0 = crypto randomness")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, level, err := observability.NewLogger(cfg.Logging, "idled")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)
	notifier := notify.NewLogNotifier(logger)

	var src dice.Source = dice.NewCryptoSource()
	if *seed != 0 {
		src = dice.NewSeededSource(*seed)
	}
	roller := dice.NewLoggedRoller(src, logger)

	// Content
	contentStart := time.Now()
	templates, err := spawn.LoadTemplates(cfg.Game.MonsterDir)
	if err != nil {
		logger.Fatal("loading monster templates", zap.Error(err))
	}
	tables, err := spawn.LoadTables(cfg.Game.SpawnDir)
	if err != nil {
		logger.Fatal("loading spawn tables", zap.Error(err))
	}
	table, ok := tables[cfg.Game.SpawnTable]
	if !ok {
		logger.Fatal("spawn table not found", zap.String("table", cfg.Game.SpawnTable))
	}
	var skills []skill.Def
	if cfg.Game.SkillFile != "" {
		skills, err = skill.LoadDefs(cfg.Game.SkillFile)
		if err != nil {
			logger.Fatal("loading skills", zap.Error(err))
		}
	}

	var gate spawn.GateFunc
	if cfg.Game.ScriptDir != "" {
		scripts := scripting.NewManager(logger, scripting.DefaultInstructionLimit)
		defer scripts.Close()
		if err := loadScripts(scripts, cfg.Game.ScriptDir, table.ID); err != nil {
			logger.Fatal("loading gate scripts", zap.Error(err))
		}
		gate = scripts.GateFor(table.ID)
	}

	set, err := spawn.BuildSet(table, templates, spawn.BuildOptions{
		Roller:   roller,
		Notifier: notifier,
		Metrics:  metrics,
		Gate:     gate,
	})
	if err != nil {
		logger.Fatal("building spawn set", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("templates", len(templates)),
		zap.Int("tables", len(tables)),
		zap.Int("groups", set.Len()),
		zap.Float64("weight_total", set.WeightTotal()),
		zap.Int("skills", len(skills)),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	// Save store
	var (
		store save.Store = save.NewMemoryStore()
		ready func(context.Context) error
	)
	if cfg.Game.Store == "postgres" {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		store = postgres.NewSaveStore(pool.DB())
		ready = pool.Ready
	}
	if cfg.Game.CacheSize > 0 {
		store = save.NewCachedStore(store, cfg.Game.CacheSize, cfg.Game.CacheTTL)
	}

	runner, err := gameserver.LoadRunner(ctx, store, gameserver.RunnerConfig{
		CharacterID:   cfg.Game.CharacterID,
		HallID:        cfg.Game.HallID,
		DungeonLength: cfg.Game.DungeonLength,
		Spawns:        set,
		Skills:        skills,
		Notifier:      notifier,
		Metrics:       metrics,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal("restoring runner", zap.Error(err))
	}

	ticks := gameserver.NewTickManager(cfg.Game.TickInterval)
	sinceSave := 0
	ticks.RegisterTick(cfg.Game.CharacterID, func(dt float64) {
		tickStart := time.Now()
		runner.Tick(dt)
		metrics.ObserveTick(time.Since(tickStart).Seconds())

		sinceSave++
		if sinceSave < cfg.Game.SaveEvery {
			return
		}
		sinceSave = 0
		if err := runner.Save(ctx, store); err != nil {
			logger.Error("autosave failed", zap.Error(err))
		}
	})

	tickCtx, stopTicks := context.WithCancel(ctx)
	lc := server.NewLifecycle(logger)
	lc.Add("ticker", &server.FuncService{
		StartFn: func() error {
			ticks.Run(tickCtx)
			return nil
		},
		StopFn: func() {
			stopTicks()
			if err := runner.Save(context.Background(), store); err != nil {
				logger.Error("final save failed", zap.Error(err))
			}
		},
	})
	lc.Add("admin", gameserver.NewAdminServer(cfg.Admin.Addr(), gameserver.AdminDeps{
		Runner:   runner,
		Gatherer: reg,
		LogLevel: level,
		Ready:    ready,
	}, logger))

	logger.Info("idle daemon ready",
		zap.String("character", cfg.Game.CharacterID),
		zap.String("store", cfg.Game.Store),
		zap.String("admin_addr", cfg.Admin.Addr()),
		zap.Duration("startup", time.Since(start)),
	)

	if err := lc.Run(ctx); err != nil {
		logger.Fatal("daemon stopped", zap.Error(err))
	}
}

// loadScripts loads dir/<table> as the table VM when present and dir itself
// as the global fallback.
func loadScripts(m *scripting.Manager, dir, tableID string) error {
	if err := m.LoadGlobal(dir); err != nil {
		return err
	}
	tableDir := filepath.Join(dir, tableID)
	if info, err := os.Stat(tableDir); err == nil && info.IsDir() {
		return m.LoadTable(tableID, tableDir)
	}
	return nil
}
