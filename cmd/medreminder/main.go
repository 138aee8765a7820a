package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/gmsas95/medreminder/internal/app"
	"github.com/gmsas95/medreminder/internal/cli"
	"github.com/gmsas95/medreminder/internal/config"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	dataDir    = flag.String("data", "", "Path to data directory")
	version    = "dev"
)

func main() {
	flag.Usage = cli.PrintExtendedHelp
	flag.Parse()
	cli.Version = version

	command := "serve"
	args := flag.Args()
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "help", "--help", "-h":
		cli.PrintExtendedHelp()
		return
	case "version", "--version", "-v":
		fmt.Printf("Medreminder version %s\n", version)
		return
	case "status":
		cli.HandleStatusCommand(loadConfig())
		return
	case "doctor":
		cli.HandleDoctorCommand(loadConfig())
		return
	case "channels":
		cli.HandleChannelsCommand(loadConfig())
		return
	}

	application := initApp()

	switch command {
	case "serve", "server", "run":
		application.RunServer()
		return
	}

	defer application.Close()

	switch command {
	case "list", "ls":
		cli.HandleListCommand(application)
	case "leaflet":
		cli.HandleLeafletCommand(args, application)
	case "reschedule":
		cli.HandleRescheduleCommand(application)
	case "export":
		cli.HandleExportCommand(args, application)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		cli.PrintExtendedHelp()
		application.Close()
		os.Exit(2)
	}
}

func loadConfig() *config.Config {
	if err := config.LoadEnvFiles(); err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func initApp() *app.App {
	cfg := loadConfig()

	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Info("Starting Medreminder",
		zap.String("version", version),
		zap.String("data_dir", cfg.Storage.DataDir),
	)

	application, err := app.New(cfg, logger, version)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}

	return application
}
