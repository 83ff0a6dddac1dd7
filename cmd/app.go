package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/lukman83/listing-miner/config"
	"github.com/lukman83/listing-miner/internal/allegro"
	"github.com/lukman83/listing-miner/internal/archive"
	"github.com/lukman83/listing-miner/internal/httputil"
	"github.com/lukman83/listing-miner/internal/mining"
	"github.com/lukman83/listing-miner/internal/normalize"
	"github.com/lukman83/listing-miner/internal/stealth"
	mcpserver "github.com/lukman83/listing-miner/mcp"
	"golang.org/x/time/rate"
)

// app bundles every component a command may need; it is built once per
// command invocation from the validated config.
type app struct {
	client   *allegro.Client
	explorer *allegro.Explorer
	store    archive.Store
	miner    *mining.Miner
	mode     archive.Mode
}

// buildHTTPClient creates the throttled HTTP client from config.
func buildHTTPClient(c *config.Config) (*http.Client, error) {
	var proxyRotator *stealth.ProxyRotator
	if c.Network.ProxyFile != "" {
		providers, err := stealth.LoadProxyFile(c.Network.ProxyFile)
		if err != nil {
			return nil, err
		}
		proxyRotator = stealth.NewProxyRotator(providers)
	}

	baseTransport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 2 * c.WorkerCount(),
		IdleConnTimeout:     90 * time.Second,
	}

	jitter, err := stealth.NewJitter(stealth.DelayProfile(c.Network.DelayProfile))
	if err != nil {
		return nil, err
	}

	robotsClient := &http.Client{Timeout: 10 * time.Second}
	transport := &stealth.StealthTransport{
		Base:        baseTransport,
		Robots:      stealth.NewRobotsChecker(robotsClient, c.Network.RespectRobots),
		Proxy:       proxyRotator,
		Delay:       jitter,
		RateLimiter: rate.NewLimiter(rate.Limit(c.Network.RatePerSecond), max(c.Network.RateBurst, 1)),
	}

	return httputil.NewHTTPClient(transport, time.Duration(c.Network.TimeoutSeconds)*time.Second), nil
}

// openStore opens the archive backend selected in config.
func openStore(c *config.Config) (archive.Store, error) {
	if err := c.ValidateArchive(); err != nil {
		return nil, err
	}
	switch c.Archive.Backend {
	case "sqlite":
		return archive.OpenSQLite(filepath.Join(c.Archive.Dir, "archive.db"))
	default:
		return archive.NewCSVStore(c.Archive.Dir)
	}
}

// newApp validates the config and wires the full mining stack.
func newApp(c *config.Config, log *slog.Logger) (*app, error) {
	if cfgErr != nil {
		return nil, cfgErr
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	httpClient, err := buildHTTPClient(c)
	if err != nil {
		return nil, err
	}
	store, err := openStore(c)
	if err != nil {
		return nil, err
	}
	mode, err := archive.ParseMode(c.Mining.DefaultMode)
	if err != nil {
		store.Close()
		return nil, err
	}

	workers := c.WorkerCount()
	tokens := allegro.NewCredentialProvider(httpClient, c.Querying.TokenURL, c.ClientID, c.ClientSecret, 3, 5*time.Second, log)
	client := allegro.NewClient(httpClient, tokens, allegro.Options{
		Host:     c.Querying.Host,
		PageSize: c.Querying.ItemLimitPerQuery,
		Workers:  workers,
		Logger:   log,
	})

	return &app{
		client:   client,
		explorer: allegro.NewExplorer(client, tokens),
		store:    store,
		mode:     mode,
		miner: mining.New(client, normalize.New(workers), store, mining.Options{
			Threshold:   c.Mining.ItemPerCategoryThreshold,
			Phrases:     c.Mining.Phrases,
			DefaultMode: mode,
			Namer:       client,
			Logger:      log,
		}),
	}, nil
}

func (a *app) mcpDeps(log *slog.Logger) mcpserver.Deps {
	return mcpserver.Deps{
		Miner:       a.miner,
		Explorer:    a.explorer,
		Store:       a.store,
		DefaultMode: a.mode,
		Logger:      log,
	}
}

func (a *app) Close() error {
	return a.store.Close()
}
