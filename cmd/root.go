package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lukman83/listing-miner/config"
	"github.com/spf13/cobra"
)

var (
	cfg       *config.Config
	cfgErr    error
	logger    *slog.Logger
	quietMode bool
)

var rootCmd = &cobra.Command{
	Use:   "miner",
	Short: "Listing Miner - marketplace listing mining CLI & MCP server",
	Long: "Mines marketplace listings for search phrases, normalizes them into a fixed table " +
		"and accumulates deduplicated results across runs.",
	SilenceUsage: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "config.yaml", "Path to the YAML settings file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text, json")
	rootCmd.PersistentFlags().Int("workers", 0, "Concurrent page fetches and normalization chunks (0 = one per CPU)")
	rootCmd.PersistentFlags().String("archive-backend", "", "Archive backend: csv, sqlite")
	rootCmd.PersistentFlags().String("archive-dir", "", "Directory holding the archives")
	rootCmd.PersistentFlags().String("delay-profile", "", "Delay profile: none, cautious, normal, aggressive")
	rootCmd.PersistentFlags().Bool("respect-robots", false, "Respect robots.txt rules of the API host")
	rootCmd.PersistentFlags().String("proxy-file", "", "Path to proxy list file")
	rootCmd.PersistentFlags().BoolVarP(&quietMode, "quiet", "q", false, "Disable the progress spinner")
}

func initConfig() {
	flags := rootCmd.PersistentFlags()

	cfg = config.DefaultConfig()
	path, _ := flags.GetString("config")
	cfgErr = cfg.LoadFile(path, !flags.Changed("config"))
	cfg.LoadFromEnv()

	// Override from flags
	if v, _ := flags.GetInt("workers"); v > 0 {
		cfg.Mining.Workers = v
	}
	if v, _ := flags.GetString("archive-backend"); v != "" {
		cfg.Archive.Backend = v
	}
	if v, _ := flags.GetString("archive-dir"); v != "" {
		cfg.Archive.Dir = v
	}
	if v, _ := flags.GetString("delay-profile"); v != "" {
		cfg.Network.DelayProfile = v
	}
	if flags.Changed("respect-robots") {
		cfg.Network.RespectRobots, _ = flags.GetBool("respect-robots")
	}
	if v, _ := flags.GetString("proxy-file"); v != "" {
		cfg.Network.ProxyFile = v
	}

	level, _ := flags.GetString("log-level")
	format, _ := flags.GetString("log-format")
	logger = newLogger(os.Stderr, level, format)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
