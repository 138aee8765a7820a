package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/gmsas95/medreminder/internal/app"
	"github.com/gmsas95/medreminder/internal/config"
	"github.com/gmsas95/medreminder/internal/security"
)

var Version = "dev"

func HandleListCommand(application *app.App) {
	meds, err := application.Tracker.List()
	if err != nil {
		fmt.Printf("Error loading medicines: %v\n", err)
		os.Exit(1)
	}

	entries, err := application.Registry.List(context.Background())
	if err != nil {
		fmt.Printf("Error listing reminders: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(medicineTable(meds, entries, application.Language.IsTurkish()))
}

func HandleLeafletCommand(args []string, application *app.App) {
	if len(args) == 0 {
		fmt.Println("Usage: medreminder leaflet <name> [dosage]")
		os.Exit(1)
	}

	name := args[0]
	dosage := strings.Join(args[1:], " ")
	if err := security.CheckLeafletQuery(name, dosage); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), application.Config.LeafletTimeout()+5*time.Second)
	defer cancel()

	data := application.Leaflets.GetSummarizedLeaflet(ctx, name, dosage, application.Profiles.Get().Leaflet())

	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding leaflet: %v\n", err)
			os.Exit(1)
		}
		return
	}

	width, _, err := term.GetSize(fd)
	if err != nil {
		width = 80
	}
	out, err := renderLeaflet(data, width)
	if err != nil {
		fmt.Println(leafletMarkdown(data))
		return
	}
	fmt.Print(out)
}

func HandleRescheduleCommand(application *app.App) {
	results, err := application.RescheduleAll(context.Background())
	if err != nil {
		fmt.Printf("Error rescheduling: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	for _, r := range results {
		switch {
		case r.Unsupported:
			fmt.Printf("⚠️  %s: notifications not supported\n", r.MedicineID)
		case r.CancelErr != nil:
			failed++
			fmt.Printf("❌ %s: %v\n", r.MedicineID, r.CancelErr)
		default:
			if r.Failed() > 0 {
				failed++
			}
			fmt.Printf("✓ %s: %d scheduled, %d failed, %d replaced\n", r.MedicineID, r.Scheduled(), r.Failed(), r.Cancelled)
		}
	}

	if failed > 0 {
		fmt.Printf("\n%d medicine(s) had scheduling problems\n", failed)
		os.Exit(1)
	}
	fmt.Printf("\nRescheduled %d medicine(s)\n", len(results))
}

func HandleExportCommand(args []string, application *app.App) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	format := fs.String("format", "json", "Output format: json or yaml")
	fs.Parse(args)

	meds, err := application.Tracker.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading medicines: %v\n", err)
		os.Exit(1)
	}
	entries, err := application.Registry.List(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing reminders: %v\n", err)
		os.Exit(1)
	}

	snapshot := newExport(meds, entries, application.Profiles.Get(), application.Language.Get(), time.Now())
	if err := writeExport(os.Stdout, snapshot, strings.ToLower(*format)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func HandleChannelsCommand(cfg *config.Config) {
	fmt.Println("Delivery Channels:")
	fmt.Println("==================")
	fmt.Printf("Log:       %s\n", channelStatus(cfg.Channels.Log))
	fmt.Printf("WebSocket: %s\n", channelStatus(cfg.Channels.WebSocket))
	fmt.Printf("Telegram:  %s\n", channelStatus(cfg.Channels.Telegram.Enabled))
	if cfg.Channels.Telegram.Enabled {
		fmt.Printf("  Bot Token: %s\n", maskToken(cfg.Channels.Telegram.BotToken))
		fmt.Printf("  Chat ID:   %d\n", cfg.Channels.Telegram.ChatID)
	}
	fmt.Printf("Discord:   %s\n", channelStatus(cfg.Channels.Discord.Enabled))
	if cfg.Channels.Discord.Enabled {
		fmt.Printf("  Token:     %s\n", maskToken(cfg.Channels.Discord.Token))
		fmt.Printf("  Channel:   %s\n", cfg.Channels.Discord.ChannelID)
	}
}

func HandleStatusCommand(cfg *config.Config) {
	fmt.Println("Medreminder Status")
	fmt.Println("==================")
	fmt.Println()
	fmt.Printf("Version: %s\n", Version)
	fmt.Printf("Data:    %s\n", cfg.Storage.DataDir)
	fmt.Println()
	fmt.Println("Server:")
	fmt.Printf("  Address: %s:%d\n", cfg.Server.Address, cfg.Server.Port)
	fmt.Printf("  URL: http://localhost:%d\n", cfg.Server.Port)
	fmt.Println()
	fmt.Println("Reminders:")
	fmt.Printf("  Scheduling: %s\n", channelStatus(cfg.Reminders.Enabled))
	fmt.Printf("  Pre-dose:   %d minutes\n", cfg.Reminders.PreDoseMinutes)
	fmt.Printf("  Timezone:   %s\n", cfg.Reminders.Timezone)
	fmt.Println()
	fmt.Println("Leaflets:")
	fmt.Printf("  Model:   %s\n", cfg.Leaflet.Model)
	fmt.Printf("  API key: %s\n", maskToken(cfg.Leaflet.APIKey))
	fmt.Println()
	fmt.Println("Run 'medreminder doctor' for diagnostics")
}

func HandleDoctorCommand(cfg *config.Config) {
	fmt.Println("Medreminder Diagnostics")
	fmt.Println("=======================")
	fmt.Println()

	issues := 0

	if _, err := os.Stat(cfg.Storage.DataDir); os.IsNotExist(err) {
		fmt.Println("❌ Data Directory: Does not exist")
		issues++
	} else {
		fmt.Println("✅ Data Directory: Exists")
	}

	if _, err := cfg.Location(); err != nil {
		fmt.Printf("❌ Timezone: %v\n", err)
		issues++
	} else {
		fmt.Printf("✅ Timezone: %s\n", cfg.Reminders.Timezone)
	}

	if cfg.Leaflet.APIKey == "" {
		fmt.Println("⚠️  Leaflet API key: Not configured, summaries will show the offline fallback")
		fmt.Println("   Set MEDREMINDER_LEAFLET_API_KEY or GEMINI_API_KEY")
		issues++
	} else {
		fmt.Println("✅ Leaflet API key: Configured")
	}

	if !cfg.Channels.Log && !cfg.Channels.WebSocket && !cfg.Channels.Telegram.Enabled && !cfg.Channels.Discord.Enabled {
		fmt.Println("⚠️  Channels: None enabled, reminders will not be delivered")
		issues++
	} else {
		fmt.Println("✅ Channels: At least one enabled")
	}

	fmt.Println()
	if issues == 0 {
		fmt.Println("✅ All checks passed!")
	} else {
		fmt.Printf("⚠️  Found %d issue(s).\n", issues)
	}
}

func PrintExtendedHelp() {
	fmt.Println("Medreminder - medicine reminders and leaflet summaries")
	fmt.Println()
	fmt.Println("Usage: medreminder [flags] <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                      Run the HTTP API and reminder scheduler (default)")
	fmt.Println("  list                       Show stored medicines and their reminders")
	fmt.Println("  leaflet <name> [dosage]    Summarise a medicine leaflet")
	fmt.Println("  reschedule                 Rebuild reminders for every medicine")
	fmt.Println("  export [-format json|yaml] Print all stored data")
	fmt.Println("  channels                   Show delivery channel settings")
	fmt.Println("  status                     Show configuration summary")
	fmt.Println("  doctor                     Run diagnostics")
	fmt.Println("  version                    Print the version")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -config <path>   Path to config file")
	fmt.Println("  -data <path>     Path to data directory")
}
