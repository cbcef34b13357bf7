package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ObsyanX/kmrl-prototype1-sub001/app"
	"github.com/ObsyanX/kmrl-prototype1-sub001/config"
)

var (
	whatifDate      string
	whatifScheduled string
	whatifStandby   string
)

var whatifCmd = &cobra.Command{
	Use:   "whatif",
	Short: "Analyze swapping a standby trainset for a scheduled one",
	RunE:  runWhatif,
}

func init() {
	whatifCmd.Flags().StringVar(&whatifDate, "date", "", "plan date (2006-01-02)")
	whatifCmd.Flags().StringVar(&whatifScheduled, "scheduled", "", "scheduled trainset id")
	whatifCmd.Flags().StringVar(&whatifStandby, "standby", "", "standby trainset id")
	_ = whatifCmd.MarkFlagRequired("date")
	_ = whatifCmd.MarkFlagRequired("scheduled")
	_ = whatifCmd.MarkFlagRequired("standby")
	rootCmd.AddCommand(whatifCmd)
}

func runWhatif(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	date, err := time.Parse("2006-01-02", whatifDate)
	if err != nil {
		return fmt.Errorf("invalid date: %w", err)
	}
	a, err := svc.Planner.AnalyzeSwap(ctx, date, whatifScheduled, whatifStandby)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}
