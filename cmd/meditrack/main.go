package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"go.uber.org/zap"

	"github.com/gmsas95/meditrack/internal/api"
	"github.com/gmsas95/meditrack/internal/config"
	"github.com/gmsas95/meditrack/internal/cron"
	"github.com/gmsas95/meditrack/internal/tracker"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	dataDir    = flag.String("data", "", "Path to data directory")
	version    = "dev"
)

func main() {
	// Handle subcommands before flag parsing
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			os.Args = append(os.Args[:1], os.Args[2:]...)
		case "report":
			handleReportCommand(os.Args[2:])
			return
		case "export":
			handleExportCommand(os.Args[2:])
			return
		case "backup":
			handleBackupCommand(os.Args[2:])
			return
		case "restore":
			handleRestoreCommand(os.Args[2:])
			return
		case "help", "--help", "-h":
			printHelp()
			return
		case "version", "--version", "-v":
			fmt.Printf("meditrack version %s\n", version)
			return
		}
	}

	flag.Parse()
	runServer()
}

func setup() (*config.Config, *tracker.Tracker, *zap.Logger) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	store, err := tracker.Open(cfg)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}

	return cfg, tracker.NewTracker(store, logger), logger
}

func runServer() {
	cfg, tr, logger := setup()
	defer logger.Sync()

	tr.RefreshGauges()

	cronRunner := cron.NewRunner(cfg.Cron, tr, logger)
	if err := cronRunner.Start(); err != nil {
		logger.Fatal("Failed to start cron runner", zap.Error(err))
	}

	server := api.New(cfg, tr, logger)

	go func() {
		logger.Info("Server starting",
			zap.String("address", cfg.Server.Address),
			zap.Int("port", cfg.Server.Port),
		)
		if err := server.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	cronRunner.Stop()
	if err := server.Shutdown(); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
}

func handleReportCommand(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	days := fs.Int("days", 30, "Window size in days")
	fs.StringVar(configPath, "config", "", "Path to config file")
	fs.StringVar(dataDir, "data", "", "Path to data directory")
	fs.Parse(args)

	_, tr, logger := setup()
	defer logger.Sync()

	summary, err := tr.Summary(*days)
	if err != nil {
		logger.Fatal("Failed to compute summary", zap.Error(err))
	}

	fmt.Printf("Adherence over the last %d days\n", summary.Days)
	fmt.Printf("  taken:   %d\n", summary.Overall.Taken)
	fmt.Printf("  skipped: %d\n", summary.Overall.Skipped)
	fmt.Printf("  missed:  %d\n", summary.Overall.Missed)
	fmt.Printf("  rate:    %d%%\n", summary.Overall.AdherenceRate)
	fmt.Printf("  streak:  %d day(s)\n", summary.Streak)
	fmt.Printf("  perfect: %d day(s)\n", summary.PerfectDays)

	perMed, err := tr.MedicinesReport(*days)
	if err != nil {
		logger.Fatal("Failed to compute per-medicine report", zap.Error(err))
	}
	if len(perMed) > 0 {
		fmt.Println("\nPer medicine:")
		for _, entry := range perMed {
			fmt.Printf("  %-30s %3d%% (%d/%d)\n", entry.Medicine.Name, entry.Rate, entry.Taken, entry.Total)
		}
	}

	stock, err := tr.Stock()
	if err != nil {
		logger.Fatal("Failed to compute stock report", zap.Error(err))
	}
	if len(stock.Lowest) > 0 {
		fmt.Println("\nRunning out soonest:")
		for _, p := range stock.Lowest {
			fmt.Printf("  %-30s %d day(s) left (runs out %s)\n", p.Medicine.Name, p.DaysLeft, p.RunOutDate)
		}
	}
}

func handleExportCommand(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("o", "", "Output file (default stdout)")
	fs.StringVar(configPath, "config", "", "Path to config file")
	fs.StringVar(dataDir, "data", "", "Path to data directory")
	fs.Parse(args)

	_, tr, logger := setup()
	defer logger.Sync()

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			logger.Fatal("Failed to create output file", zap.Error(err))
		}
		defer f.Close()
		w = f
	}

	if err := tr.ExportCSV(w); err != nil {
		logger.Fatal("Export failed", zap.Error(err))
	}
}

func handleBackupCommand(args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	out := fs.String("o", "meditrack-backup.yaml", "Output file")
	fs.StringVar(configPath, "config", "", "Path to config file")
	fs.StringVar(dataDir, "data", "", "Path to data directory")
	fs.Parse(args)

	_, tr, logger := setup()
	defer logger.Sync()

	f, err := os.Create(*out)
	if err != nil {
		logger.Fatal("Failed to create backup file", zap.Error(err))
	}
	defer f.Close()

	if err := tr.Backup(f); err != nil {
		logger.Fatal("Backup failed", zap.Error(err))
	}
	fmt.Printf("Backup written to %s\n", *out)
}

func handleRestoreCommand(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	in := fs.String("i", "", "Snapshot file to restore (required)")
	force := fs.Bool("force", false, "Skip the confirmation prompt")
	fs.StringVar(configPath, "config", "", "Path to config file")
	fs.StringVar(dataDir, "data", "", "Path to data directory")
	fs.Parse(args)

	if *in == "" {
		fmt.Fprintln(os.Stderr, "restore: -i <snapshot file> is required")
		os.Exit(1)
	}

	// Restoring replaces everything; ask first when on a terminal.
	if !*force && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Print("This replaces all medicines and intakes. Continue? [y/N] ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Println("Aborted.")
			return
		}
	}

	_, tr, logger := setup()
	defer logger.Sync()

	f, err := os.Open(*in)
	if err != nil {
		logger.Fatal("Failed to open snapshot", zap.Error(err))
	}
	defer f.Close()

	if err := tr.Restore(f); err != nil {
		logger.Fatal("Restore failed", zap.Error(err))
	}
	fmt.Println("Restore complete.")
}

func printHelp() {
	fmt.Println(`meditrack - personal medication adherence tracker

Usage:
  meditrack [serve] [flags]     Start the HTTP server (default)
  meditrack report [-days N]    Print an adherence summary
  meditrack export [-o FILE]    Export intakes as CSV
  meditrack backup [-o FILE]    Write a YAML snapshot
  meditrack restore -i FILE     Replace all data with a snapshot
  meditrack version             Print the version

Flags:
  -config PATH   Path to config file
  -data PATH     Path to data directory

Environment:
  MEDITRACK_SERVER_PORT, MEDITRACK_SECURITY_JWT_SECRET,
  MEDITRACK_SECURITY_ADMIN_PASSWORD, MEDITRACK_STORAGE_DATA_DIR, ...`)
}
