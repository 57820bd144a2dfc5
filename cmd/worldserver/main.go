// Package main provides the world server binary: the authoritative backend
// for the shared multi-room virtual world, serving websocket clients.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/hollowroot/verse/internal/chat"
	"github.com/hollowroot/verse/internal/config"
	"github.com/hollowroot/verse/internal/gateway"
	"github.com/hollowroot/verse/internal/observability"
	"github.com/hollowroot/verse/internal/progress"
	"github.com/hollowroot/verse/internal/scripting"
	"github.com/hollowroot/verse/internal/server"
	"github.com/hollowroot/verse/internal/session"
	"github.com/hollowroot/verse/internal/world"
	"github.com/hollowroot/verse/internal/worldserver"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty = defaults + environment")
	roomsDir := flag.String("rooms", "", "path to room YAML files directory; empty = built-in rooms")
	scriptDir := flag.String("scripts", "", "root directory for Lua interaction scripts; empty = scripting disabled")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *roomsDir != "" {
		cfg.World.RoomsDir = *roomsDir
	}
	if *scriptDir != "" {
		cfg.Scripting.ScriptDir = *scriptDir
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting world server", zap.String("addr", cfg.Server.Addr()))

	// Load the room catalog.
	roomStart := time.Now()
	var rooms []*world.Room
	if cfg.World.RoomsDir != "" {
		rooms, err = world.LoadRoomsFromDir(cfg.World.RoomsDir)
		if err != nil {
			logger.Fatal("loading rooms", zap.Error(err))
		}
	} else {
		rooms = world.DefaultRooms()
	}
	catalog, err := world.NewCatalog(rooms)
	if err != nil {
		logger.Fatal("building room catalog", zap.Error(err))
	}
	if err := catalog.ValidateTeleporters(); err != nil {
		logger.Fatal("validating teleporters", zap.Error(err))
	}
	if _, ok := catalog.Room(cfg.World.DefaultRoom); !ok {
		logger.Fatal("default room missing from catalog",
			zap.String("room", cfg.World.DefaultRoom))
	}
	logger.Info("world loaded",
		zap.Int("rooms", catalog.RoomCount()),
		zap.Duration("elapsed", time.Since(roomStart)),
	)

	// Optional Lua interaction hooks: one VM per room directory, plus a
	// shared fallback VM.
	var scripts *scripting.Manager
	if cfg.Scripting.ScriptDir != "" {
		scripts = scripting.NewManager(logger)
		defer scripts.Close()
		if err := scripts.LoadGlobal(cfg.Scripting.ScriptDir, cfg.Scripting.InstructionLimit); err != nil {
			logger.Fatal("loading scripts", zap.Error(err))
		}
		// Per-room scripts live in a subdirectory named after the room.
		for _, room := range catalog.Rooms() {
			dir := filepath.Join(cfg.Scripting.ScriptDir, room.ID)
			if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
				continue
			}
			if err := scripts.LoadRoom(room.ID, dir, cfg.Scripting.InstructionLimit); err != nil {
				logger.Fatal("loading room scripts", zap.String("room", room.ID), zap.Error(err))
			}
		}
		logger.Info("scripting enabled", zap.String("dir", cfg.Scripting.ScriptDir))
	}

	sessions := session.NewRegistry()
	membership := session.NewMembership()
	progressEngine := progress.NewEngine(
		progress.DefaultAchievements(),
		cfg.Progress.BaseThreshold,
		cfg.Progress.LevelMultiplier,
	)
	chatService := chat.NewService(cfg.Chat.HistoryCapacity, cfg.Chat.HistoryPageLimit)

	controller := worldserver.NewController(
		catalog, sessions, membership, progressEngine, chatService, scripts,
		cfg.World, cfg.Chat, logger,
	)
	dispatcher := worldserver.NewDispatcher(logger, cfg.Server.SweepInterval, controller.Sweep)
	gw := gateway.NewServer(cfg.Server, controller, dispatcher, sessions, logger)

	lc := server.NewLifecycle(logger)
	lc.Add("dispatcher", dispatcher)
	lc.Add("gateway", gw)

	logger.Info("world server ready", zap.Duration("startup", time.Since(start)))
	if err := lc.Run(context.Background()); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
