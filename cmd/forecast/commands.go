package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"PriceTrack/internal/services/dataset"
	"PriceTrack/internal/services/forecast"
	"PriceTrack/internal/services/training"
	applogger "PriceTrack/pkg/logger"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect --file prices.csv",
		Short: "Summarise a csv, json or parquet price dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("file")
			ds, err := loadDataset(path)
			if err != nil {
				return err
			}
			prices := ds.Prices()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "records  %d\n", len(ds.Records))
			fmt.Fprintf(out, "dropped  %d\n", ds.Dropped)
			if len(prices) == 0 {
				return nil
			}
			mean, std := stat.MeanStdDev(prices, nil)
			scale, err := forecast.ComputeScale(prices)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "min      %.2f\n", scale.Min)
			fmt.Fprintf(out, "max      %.2f\n", scale.Max)
			fmt.Fprintf(out, "mean     %.2f\n", mean)
			fmt.Fprintf(out, "stddev   %.2f\n", std)
			fmt.Fprintf(out, "lookback %d\n", forecast.ChooseLookback(len(prices)))
			return nil
		},
	}
	cmd.Flags().String("file", "", "dataset path")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train --file prices.csv",
		Short: "Train on a dataset and print the forecast",
		RunE:  runTrain,
	}
	cmd.Flags().String("file", "", "dataset path")
	cmd.Flags().Int("days", 7, "days to forecast")
	cmd.Flags().Int("epochs", 50, "training epochs")
	cmd.Flags().Int64("seed", 0, "random seed, 0 for time based (printed after training)")
	cmd.Flags().Bool("quiet", false, "hide per-epoch progress")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runTrain(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("file")
	days, _ := cmd.Flags().GetInt("days")
	epochs, _ := cmd.Flags().GetInt("epochs")
	seed, _ := cmd.Flags().GetInt64("seed")
	quiet, _ := cmd.Flags().GetBool("quiet")
	level, _ := cmd.Flags().GetString("log-level")

	if days < 1 || days > 90 {
		return fmt.Errorf("--days must be between 1 and 90, got %d", days)
	}
	l, err := applogger.New(&applogger.Config{Level: level, Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}

	ds, err := loadDataset(path)
	if err != nil {
		return err
	}
	prices := ds.Prices()
	l.Info("dataset loaded",
		applogger.String("file", path),
		applogger.Int("records", len(prices)),
		applogger.Int("dropped", ds.Dropped))

	seed = resolveSeed(seed, time.Now)
	trainer := training.NewTrainer(training.WithEpochs(epochs), training.WithSeed(seed))

	out := cmd.OutOrStdout()
	trained, err := trainer.Train(cmd.Context(), prices, func(p training.Progress) {
		if !quiet {
			fmt.Fprintf(out, "epoch %3d/%d  %3d%%  loss=%.6f  val_loss=%.6f\n", p.Epoch, p.Epochs, p.Percent, p.Loss, p.ValLoss)
		}
	})
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	preds, err := trained.Forecast(cmd.Context(), prices, days)
	if err != nil {
		return fmt.Errorf("forecast: %w", err)
	}

	fmt.Fprintf(out, "\nlookback %d, last price %.2f, seed %d\n", trained.Lookback, prices[len(prices)-1], seed)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DAY\tPRICE")
	for i, p := range preds {
		fmt.Fprintf(tw, "%d\t%.2f\n", i+1, p)
	}
	return tw.Flush()
}

// resolveSeed keeps an explicit seed and draws one from the clock for 0.
func resolveSeed(seed int64, now func() time.Time) int64 {
	if seed != 0 {
		return seed
	}
	if s := now().UnixNano(); s != 0 {
		return s
	}
	return 1
}

func loadDataset(path string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ds, err := dataset.Load(path, f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return ds, nil
}
