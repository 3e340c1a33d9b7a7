/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kasundularaam/flash-feather-starter-v6/config"
	"github.com/kasundularaam/flash-feather-starter-v6/internal/mq"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect auth events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print auth events as they are published",
	Long: `Subscribes to the configured events backend and prints each auth
event as a JSON line until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if cfg.Events.Backend == config.EventsBackendNone {
			return errors.New("EVENTS_BACKEND is none; nothing to tail")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, err := mq.NewBackend(ctx, cfg.Events)
		if err != nil {
			return err
		}

		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
		events := mq.NewEventPublisher(backend, cfg.Events.Channel, logger)
		defer events.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		err = events.Tail(ctx, func(event mq.AuthEvent) error {
			return enc.Encode(event)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("tail events: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
