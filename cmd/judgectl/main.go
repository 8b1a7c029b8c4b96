package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/programme-lv/judgeworker/conf"
	"github.com/programme-lv/judgeworker/logger"
	"github.com/programme-lv/judgeworker/sqsqueue"
	"github.com/programme-lv/judgeworker/worker"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:          "judgectl",
		Short:        "Operator CLI for the submission judge worker",
		SilenceUsage: true,
	}

	var compress bool
	var enqueueCmd = &cobra.Command{
		Use:   "enqueue <submission-id>...",
		Short: "Send judge requests for submissions to the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return enqueue(cmd.Context(), args, compress)
		},
	}
	enqueueCmd.Flags().BoolVarP(&compress, "compress", "z", false, "Send base64 encoded zstd compressed bodies")

	var runOnceCmd = &cobra.Command{
		Use:   "run-once",
		Short: "Run exactly one worker cycle and print its report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context())
		},
	}

	var configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printConfig(cmd.Context())
		},
	}

	rootCmd.AddCommand(enqueueCmd, runOnceCmd, configCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(ctx context.Context) (*conf.Config, *conf.Clients, error) {
	cfg, awsCfg, err := conf.LoadFromEnvironment(ctx)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger.New("judgectl", cfg.LogLevel, cfg.LogFormat).Logger)
	return cfg, conf.NewClients(awsCfg), nil
}

func enqueue(ctx context.Context, submissionIDs []string, compress bool) error {
	cfg, clients, err := setup(ctx)
	if err != nil {
		return err
	}
	queue := sqsqueue.NewSqsQueue(clients.Sqs, cfg.SqsQueueURL, cfg.QueueLease, cfg.QueueWait)
	for _, id := range submissionIDs {
		msgID, err := queue.Send(ctx, sqsqueue.SubmissionRef{SubmissionID: id}, compress)
		if err != nil {
			return fmt.Errorf("failed to enqueue submission %s: %w", id, err)
		}
		fmt.Printf("%s\t%s\n", id, msgID)
	}
	return nil
}

func runOnce(ctx context.Context) error {
	cfg, clients, err := setup(ctx)
	if err != nil {
		return err
	}
	report, cycleErr := worker.Assemble(cfg, clients).RunCycle(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	return cycleErr
}

func printConfig(ctx context.Context) error {
	cfg, _, err := conf.LoadUnvalidated(ctx)
	if err != nil {
		return err
	}
	for _, e := range cfg.Entries() {
		fmt.Printf("%s=%s\n", e.Key, e.Value)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}
	return nil
}
