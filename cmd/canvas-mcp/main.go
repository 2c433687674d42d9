package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dashkids/canvas-tools-mcp/internal/config"
	"github.com/dashkids/canvas-tools-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var configPath string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; {
		case arg == "--version" || arg == "-v" || arg == "version":
			fmt.Printf("canvas-tools-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case arg == "--help" || arg == "-h" || arg == "help":
			printHelp()
			return
		case arg == "--config" || arg == "-c":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--config needs a file path")
				os.Exit(2)
			}
			i++
			configPath = args[i]
		case strings.HasPrefix(arg, "--config="):
			configPath = strings.TrimPrefix(arg, "--config=")
		default:
			fmt.Fprintf(os.Stderr, "unknown argument: %s (see --help)\n", arg)
			os.Exit(2)
		}
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Logging goes to stderr (stdout is for MCP protocol)
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logger.Debug("canvas MCP server starting", "version", Version, "built", BuildTime, "commit", GitCommit)

	server.Version = Version
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}
	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads path when given, otherwise CANVAS_MCP_CONFIG or the
// defaults. CANVAS_MCP_LOG_LEVEL overrides the file's log level.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.FromEnv()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if lvl := os.Getenv(config.EnvLogLevel); lvl != "" {
		cfg.LogLevel = lvl
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func printHelp() {
	fmt.Println("canvas-tools-mcp - MCP server for a kids' coloring canvas")
	fmt.Println()
	fmt.Println("Usage: canvas-tools-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config, -c PATH   Load settings from a YAML file")
	fmt.Println("  --version, -v       Print version information")
	fmt.Println("  --help, -h          Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  CANVAS_MCP_CONFIG=path       Config file when --config is not given")
	fmt.Println("  CANVAS_MCP_LOG_LEVEL=debug   Log level (debug, info, warn, error)")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}
