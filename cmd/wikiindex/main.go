// Command wikiindex runs the wiki search and content indexing core as a
// standalone HTTP daemon; it has no one-shot rebuild or search commands.
//
// Grounded on the teacher's cmd/lci/main.go: a urfave/cli/v2 app with a
// persistent index wired once at startup, signal-driven graceful shutdown,
// and spec.md §6's exit code contract (0 clean shutdown, 1 unrecoverable
// startup error).
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/nooblyjs/wiki-index-core/internal/config"
	"github.com/nooblyjs/wiki-index-core/internal/debug"
	"github.com/nooblyjs/wiki-index-core/internal/httpapi"
	"github.com/nooblyjs/wiki-index-core/internal/service"
)

func main() {
	_ = godotenv.Load() // optional .env for WIKI_INDEX_DEBUG, ANTHROPIC_API_KEY, etc.

	app := &cli.App{
		Name:  "wikiindex",
		Usage: "Wiki search and content indexing core",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Config file path", Value: ".wikiindex.kdl"},
			&cli.StringFlag{Name: "root", Aliases: []string{"r"}, Usage: "Project root directory to index (overrides config)"},
			&cli.StringFlag{Name: "db", Usage: "SQLite database path", Value: "wikiindex.db"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP listen port", Value: 8089},
		},
		Action: runServe,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "wikiindex:", err)
		os.Exit(1)
	}
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	svc, err := service.Open(cfg, c.String("db"))
	if err != nil {
		return fmt.Errorf("open service: %w", err)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	if err := svc.RebuildAll(ctx); err != nil {
		debug.LogIndexing("initial rebuild failed: %v", err)
	}
	cancel()

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	go svc.RunAIContextScheduler(schedulerCtx, time.Duration(cfg.AI.GenerationIntervalSec)*time.Second)

	handler := httpapi.New(svc)
	addr := fmt.Sprintf(":%d", c.Int("port"))
	srv := &http.Server{Addr: addr, Handler: handler}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Printf("wikiindex listening on %s", addr)
		serveErrCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErrCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
	}
	return nil
}

func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")
	root := c.String("root")
	if root != "" && configPath == ".wikiindex.kdl" {
		configPath = filepath.Join(root, ".wikiindex.kdl")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config from %s: %w", configPath, err)
	}
	if root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve root: %w", err)
		}
		cfg.Project.Root = abs
	}
	return cfg, nil
}
