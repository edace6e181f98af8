package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-authgate/authcascade/internal/bootstrap"
	"github.com/go-authgate/authcascade/internal/config"
	"github.com/go-authgate/authcascade/internal/core"
	"github.com/go-authgate/authcascade/internal/version"

	"go.uber.org/zap"
)

func main() {
	// Define flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Usage = printUsage
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		version.Print(os.Stdout)
		os.Exit(0)
	}

	command := "server"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	switch command {
	case "server":
		os.Exit(run(runServer))
	case "capabilities":
		os.Exit(run(printCapabilities))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Usage: %s [OPTIONS] [COMMAND]\n\n", os.Args[0])
	fmt.Println("Cascading authentication service")
	fmt.Println("\nCommands:")
	fmt.Println("  server          Start the authentication server (default)")
	fmt.Println("  capabilities    Print which drivers serve each capability and exit")
	fmt.Println("\nOptions:")
	fmt.Println("  -v, --version    Show version information")
	fmt.Println("  -h, --help       Show this help message")
}

// run loads configuration, builds the logger and hands both to cmd
func run(cmd func(context.Context, *config.Config, *zap.Logger) error) int {
	cfg := config.Load()

	logger, err := bootstrap.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd(ctx, cfg, logger); err != nil {
		logger.Error("command failed", zap.Error(err))
		return 1
	}
	return 0
}

func runServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	return bootstrap.Run(ctx, cfg, logger)
}

func printCapabilities(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Close()
	}()

	routes := app.Cascade.Capabilities()
	fmt.Printf("Drivers: %v\n\n", app.Cascade.Drivers())
	for _, c := range core.Capabilities {
		ids := routes[c]
		if len(ids) == 0 {
			fmt.Printf("  %-14s (disabled)\n", c)
			continue
		}
		fmt.Printf("  %-14s %v\n", c, ids)
	}
	return nil
}
