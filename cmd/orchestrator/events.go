package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cortexhub/orchestrator-gateway/internal/config"
	"github.com/cortexhub/orchestrator-gateway/internal/events"
)

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the project event stream",
	}
	cmd.AddCommand(newEventsTailCmd(), newEventsDLQCmd())
	return cmd
}

func newEventsTailCmd() *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print project events as they are published",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			pub, err := events.NewRedisPublisher(cfg.Events)
			if err != nil {
				return err
			}
			defer pub.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			msgs, err := pub.Subscribe(ctx, group, "tail-"+uuid.NewString()[:8])
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "tailing %s (group %s)\n", pub.Stream(), group)

			enc := json.NewEncoder(cmd.OutOrStdout())
			for msg := range msgs {
				if err := enc.Encode(msg.Event); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&group, "group", "orchestrator-tail", "consumer group name")
	return cmd
}

func newEventsDLQCmd() *cobra.Command {
	var (
		count int
		purge bool
	)
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "List stream entries that could not be decoded",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			pub, err := events.NewRedisPublisher(cfg.Events)
			if err != nil {
				return err
			}
			defer pub.Close()

			ctx := cmd.Context()
			letters, err := pub.DeadLetters(ctx, count)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, l := range letters {
				if err := enc.Encode(l); err != nil {
					return err
				}
				if purge {
					if err := pub.DeleteDeadLetter(ctx, l.ID); err != nil {
						return err
					}
				}
			}
			fmt.Fprintf(os.Stderr, "%d dead letter(s) on %s\n", len(letters), pub.DeadLetterStream())
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 50, "maximum entries to show")
	cmd.Flags().BoolVar(&purge, "purge", false, "delete the listed entries")
	return cmd
}
