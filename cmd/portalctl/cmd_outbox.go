package main

import (
	"errors"
	"fmt"

	"bizportal/pkg/mq"
	"bizportal/pkg/outbox"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	replayEventID int64
	replayLimit   int
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect and replay outbox events",
}

var outboxReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Republish one event, or every failed event",
	Long: `Republishes outbox events to the broker.

  portalctl outbox replay --id 42      replay a single event
  portalctl outbox replay --limit 100  replay up to 100 failed events`,
	Args: cobra.NoArgs,
	RunE: runOutboxReplay,
}

func init() {
	outboxReplayCmd.Flags().Int64Var(&replayEventID, "id", 0, "event id to replay")
	outboxReplayCmd.Flags().IntVar(&replayLimit, "limit", 100, "max failed events to replay when --id is not set")
	outboxCmd.AddCommand(outboxReplayCmd)
}

func runOutboxReplay(cmd *cobra.Command, args []string) error {
	if replayEventID < 0 {
		return errors.New("--id must be positive")
	}
	if replayEventID == 0 && replayLimit <= 0 {
		return errors.New("--limit must be positive")
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer publisher.Close()

	replay := outbox.NewReplayService(outbox.NewRepository(pool), publisher, log)

	if replayEventID > 0 {
		if err := replay.ReplayEvent(ctx, replayEventID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "replayed event %d\n", replayEventID)
		return nil
	}

	n, err := replay.ReplayFailedEvents(ctx, replayLimit)
	if err != nil {
		return err
	}
	log.Info("Failed events replayed", zap.Int("count", n))
	fmt.Fprintf(cmd.OutOrStdout(), "replayed %d failed events\n", n)
	return nil
}
