package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/glint-nvim/glint/internal/config"
	"github.com/glint-nvim/glint/internal/llm/provider"
	"github.com/glint-nvim/glint/internal/logging"
	"github.com/glint-nvim/glint/internal/server"
	"github.com/glint-nvim/glint/internal/status"
	"github.com/glint-nvim/glint/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "glint",
	Short: "Inline AI completion engine for editors",
	Long: `Glint is the engine process behind the glint editor plugin. It speaks
line-delimited JSON over stdin/stdout: the plugin mirrors buffer state into
the engine, and the engine streams back ghost-text suggestions, render
commands, and status updates.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flag("help").Changed {
			cmd.Help()
			return nil
		}
		if cmd.Flag("version").Changed {
			fmt.Println(version.Version)
			return nil
		}

		debug, _ := cmd.Flags().GetBool("debug")
		cwd, _ := cmd.Flags().GetString("cwd")
		if cwd != "" {
			if err := os.Chdir(cwd); err != nil {
				return fmt.Errorf("failed to change directory: %v", err)
			}
		}
		if cwd == "" {
			c, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current working directory: %v", err)
			}
			cwd = c
		}

		if err := logging.InitService(); err != nil {
			return err
		}
		status.InitManager(status.NewService())

		// Stdout carries the wire protocol, so human-readable logs go to
		// stderr when --debug is set and into the log service otherwise.
		setupLogging(debug)

		cfg, err := config.Load(cwd, debug)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		client, err := provider.New(ctx, cfg.Provider.Name, provider.Options{
			Model:     cfg.Provider.Model,
			APIKey:    cfg.APIKey(),
			BaseURL:   cfg.Provider.BaseURL,
			MaxTokens: int64(cfg.Suggestion.MaxTokens),
		})
		if err != nil {
			return err
		}

		srv := server.New(server.Options{
			Config: cfg,
			Client: client,
			In:     os.Stdin,
			Out:    os.Stdout,
		})

		if err := config.Watch(ctx, func(*config.Config) {
			srv.Controller().Reconfigure()
		}); err != nil {
			slog.Warn("config watcher unavailable", "error", err)
		}

		// Exit cleanly if the editor dies without sending shutdown.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		go func() {
			defer logging.RecoverPanic("signal-handler", nil)
			select {
			case sig := <-sigCh:
				slog.Info("shutting down on signal", "signal", sig)
				cancel()
			case <-ctx.Done():
			}
		}()

		err = srv.Run(ctx)

		status.GetService().Shutdown()
		logging.GetService().Shutdown()

		if err != nil && ctx.Err() == nil {
			slog.Error("server exited with error", "error", err)
			return err
		}
		return nil
	},
}

func setupLogging(debug bool) {
	lvl := new(slog.LevelVar)
	if debug {
		lvl.Set(slog.LevelDebug)
		charmLogger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
			Level:           charmlog.DebugLevel,
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "Glint",
		})
		charmlog.SetDefault(charmLogger)
		slog.SetDefault(slog.New(charmLogger))
		return
	}
	handler := slog.NewTextHandler(logging.NewSlogWriter(), &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("help", "h", false, "Help")
	rootCmd.Flags().BoolP("version", "v", false, "Version")
	rootCmd.Flags().BoolP("debug", "d", false, "Log debug output to stderr")
	rootCmd.Flags().StringP("cwd", "c", "", "Current working directory")
}
