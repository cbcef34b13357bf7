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
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/induction"
)

var inductDate string

var inductCmd = &cobra.Command{
	Use:   "induct",
	Short: "Run one nightly planning pass and print the explanation",
	RunE:  runInduct,
}

func init() {
	inductCmd.Flags().StringVar(&inductDate, "date", "", "plan date (2006-01-02), defaults to tomorrow")
	rootCmd.AddCommand(inductCmd)
}

func runInduct(cmd *cobra.Command, args []string) error {
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

	date := time.Now().AddDate(0, 0, 1)
	if inductDate != "" {
		date, err = time.Parse("2006-01-02", inductDate)
		if err != nil {
			return fmt.Errorf("invalid date: %w", err)
		}
	}

	res, err := svc.Planner.RunNightly(ctx, date)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(induction.Explain(res))
}
