/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/campusevents/apiserver/config"
	"github.com/campusevents/apiserver/internal/mq"
	"github.com/campusevents/apiserver/internal/services"
	"github.com/spf13/cobra"
)

// workerCmd represents the worker command. It consumes registration
// lifecycle messages and hands them to the notification sink; actual
// email/SMS delivery is out of scope, so deliveries are logged.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consumes registration notifications from the broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		broker, err := mq.FromConfig(cmd.Context(), cfg.MQ)
		if err != nil {
			return fmt.Errorf("connect broker failed: %w", err)
		}
		if broker == nil {
			return errors.New("MQ_BACKEND is required for the worker")
		}
		defer broker.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		channels := []string{
			services.ChannelRegistrationConfirmed,
			services.ChannelRegistrationCancelled,
		}
		errs := make(chan error, len(channels))
		for _, channel := range channels {
			go func(channel string) {
				errs <- broker.Subscribe(ctx, channel, func(ctx context.Context, msg mq.Message) error {
					log.Printf("notification %s on %s: %s", msg.ID, channel, msg.Data)
					return nil
				})
			}(channel)
		}

		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
