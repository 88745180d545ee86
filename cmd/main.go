package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/joelikes8/Discord-CBA-Bot/internal/api"
	"github.com/joelikes8/Discord-CBA-Bot/internal/bot"
	"github.com/joelikes8/Discord-CBA-Bot/internal/commands"
	"github.com/joelikes8/Discord-CBA-Bot/internal/config"
	"github.com/joelikes8/Discord-CBA-Bot/internal/logging"
	"github.com/joelikes8/Discord-CBA-Bot/internal/notifier"
	"github.com/joelikes8/Discord-CBA-Bot/internal/roblox"
	"github.com/joelikes8/Discord-CBA-Bot/internal/storage"
	"github.com/joelikes8/Discord-CBA-Bot/internal/verification"
)

func main() {
	fmt.Println("Starting CBA Security Bot")

	// .env is optional; real deployments use actual environment variables.
	godotenv.Load()

	cfg := config.LoadOrDefault("config.json")
	if cfg.Bot.Token == "" {
		fmt.Println("DISCORD_TOKEN is not set, refusing to start")
		os.Exit(1)
	}

	if err := initializeLogging(cfg); err != nil {
		panic(err)
	}

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		logging.Error("Database initialization failed: %v", err)
		panic(err)
	}
	logging.Info("Database ready at %s", cfg.Database.Path)

	rbx := roblox.NewClient(cfg.Roblox.Cookie)
	if cfg.Roblox.Cookie != "" {
		if err := rbx.RefreshConnection(); err != nil {
			logging.Warn("Roblox authentication failed, ranking commands will not work: %v", err)
		}
	} else {
		logging.Warn("No ROBLOX_COOKIE set, ranking commands will not work")
	}

	verifier := verification.NewService(store, rbx)

	if err := bot.Initialize(cfg.Bot.Token); err != nil {
		logging.Error("Bot initialization failed: %v", err)
		panic(err)
	}
	session := bot.GetSession()

	handlers := bot.NewHandlers(store, cfg)
	handlers.Register(session)

	if err := session.Connect(); err != nil {
		logging.Error("Discord connection failed: %v", err)
		panic(err)
	}
	notifier.SetSession(session.GetDiscord())

	if err := commands.Initialize(session, store, verifier, rbx, cfg.Roblox.GroupID, handlers); err != nil {
		logging.Error("Command registration failed: %v", err)
		panic(err)
	}

	apiServer := api.NewServer(store, rbx)
	go func() {
		if err := apiServer.Run(cfg.API.Port); err != nil {
			logging.Error("Dashboard API stopped: %v", err)
		}
	}()

	logging.Info("All components started successfully")

	waitForShutdown()

	session.Close()
	store.Close()
	logging.Info("Shutdown complete")
}

func initializeLogging(cfg *config.Config) error {
	level := logging.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	return logging.InitGlobalLogger(level, cfg.Logging.Path)
}

func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logging.Info("Shutdown signal received")
}
