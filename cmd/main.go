package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Elliesaur/DiscordEventLogger/internal/bot"
	"github.com/Elliesaur/DiscordEventLogger/internal/commands"
	"github.com/Elliesaur/DiscordEventLogger/internal/config"
	"github.com/Elliesaur/DiscordEventLogger/internal/database"
	"github.com/Elliesaur/DiscordEventLogger/internal/events"
	"github.com/Elliesaur/DiscordEventLogger/internal/logging"
	"github.com/Elliesaur/DiscordEventLogger/internal/resolver"
	"github.com/Elliesaur/DiscordEventLogger/internal/router"
	"github.com/Elliesaur/DiscordEventLogger/internal/script"
)

func main() {
	fmt.Println("Starting Discord Event Logger")

	cfg := config.LoadOrDefault("config.json")
	if cfg.Bot.Token == "" {
		fmt.Println("No bot token: set bot.token in config.json or DISCORD_TOKEN")
		os.Exit(1)
	}

	if err := initializeLogging(cfg); err != nil {
		panic(err)
	}

	if err := initializeDatabase(cfg); err != nil {
		panic(err)
	}

	catalog, err := events.DefaultCatalog()
	if err != nil {
		panic(err)
	}
	logging.Info("Event catalog loaded with %d events", len(catalog.Names()))

	engine := script.NewEngine(
		time.Duration(cfg.Scripts.BudgetMS)*time.Millisecond,
		cfg.Scripts.Workers,
		cfg.Scripts.QueueSize,
	)
	engine.Start()

	if err := initializeBot(cfg, catalog, engine); err != nil {
		panic(err)
	}

	logging.Info("All components started successfully")

	waitForShutdown()

	engine.Stop()
	bot.GetSession().Close()
	database.Close()
	logging.GlobalLogger.Close()

	fmt.Println("Shutdown complete")
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

func initializeDatabase(cfg *config.Config) error {
	fmt.Println("Initializing SQLite database...")

	if err := database.Initialize(cfg.Storage.DatabasePath); err != nil {
		return err
	}

	if database.IsConnected() {
		fmt.Println("Database initialized and connection verified")
	} else {
		fmt.Println("Database initialized but connection verification failed")
	}

	return nil
}

func initializeBot(cfg *config.Config, catalog *events.Catalog, engine *script.Engine) error {
	fmt.Println("Initializing Discord bot...")

	if err := bot.Initialize(cfg.Bot.Token); err != nil {
		return err
	}

	session := bot.GetSession()
	platform := bot.NewPlatform(session)

	r := router.New(
		catalog,
		database.GetDB(),
		platform,
		router.NewScriptActions(engine, platform),
		resolver.New(platform),
	)

	// Handlers must be registered before the gateway connection opens.
	bot.RegisterHandlers(session, r, platform)
	if err := commands.Initialize(session, catalog); err != nil {
		return err
	}

	if err := session.Connect(); err != nil {
		return err
	}

	fmt.Println("Discord bot initialized successfully")
	return nil
}

func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	fmt.Println("\nShutdown signal received")
}
