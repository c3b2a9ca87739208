package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/soltixdb/tsinsight/internal/analytics/anomaly"
	"github.com/soltixdb/tsinsight/internal/analytics/forecast"

	insightgrpc "github.com/soltixdb/tsinsight/internal/grpc"
)

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file>",
		Short: "Summarize the distribution of a series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, opts, insightgrpc.OperationStats, args[0], nil)
		},
	}
}

func newTrendCmd(opts *options) *cobra.Command {
	var profile string
	cmd := &cobra.Command{
		Use:   "trend <file>",
		Short: "Fit a linear trend and look for weekly seasonality and cycles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, opts, insightgrpc.OperationTrend, args[0], map[string]interface{}{
				"profile": profile,
			})
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "", "Named profile supplying trend thresholds")
	return cmd
}

func newForecastCmd(opts *options) *cobra.Command {
	var (
		periods int
		method  string
		profile string
	)
	cmd := &cobra.Command{
		Use:   "forecast <file>",
		Short: "Project future values of a series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, opts, insightgrpc.OperationForecast, args[0], map[string]interface{}{
				"periods": float64(periods),
				"method":  method,
				"profile": profile,
			})
		},
	}
	cmd.Flags().IntVar(&periods, "periods", 7, "Number of periods to forecast")
	cmd.Flags().StringVar(&method, "method", forecast.MethodTrend, "Forecast method (trend, moving_average, exponential_smoothing)")
	cmd.Flags().StringVar(&profile, "profile", "", "Named profile supplying forecast settings")
	return cmd
}

func newDetectCmd(opts *options) *cobra.Command {
	var (
		method  string
		profile string
		series  string
	)
	cmd := &cobra.Command{
		Use:   "detect <file>",
		Short: "Flag anomalous points of a series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, opts, insightgrpc.OperationDetect, args[0], map[string]interface{}{
				"method":  method,
				"profile": profile,
				"series":  series,
			})
		},
	}
	cmd.Flags().StringVar(&method, "method", anomaly.MethodStatistical, "Detection method (statistical, zscore, percentile, iqr)")
	cmd.Flags().StringVar(&profile, "profile", "", "Named profile supplying detection thresholds")
	cmd.Flags().StringVar(&series, "series", "", "Record the anomalies in the history of this series")
	return cmd
}

// runOperation reads the series file, runs operation and prints the result.
// Empty string and zero values in extra are left out of the request.
func runOperation(cmd *cobra.Command, opts *options, operation, path string, extra map[string]interface{}) error {
	if opts.format != formatYAML && opts.format != formatJSON {
		return fmt.Errorf("unsupported output format: %s (use yaml or json)", opts.format)
	}

	req, err := readSeriesFile(path, cmd.InOrStdin())
	if err != nil {
		return err
	}
	req["operation"] = operation
	for k, v := range extra {
		if v == "" || v == 0.0 {
			continue
		}
		req[k] = v
	}

	in, err := structpb.NewStruct(req)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	a, err := opts.newAnalyzer(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	out, err := a.Analyze(ctx, in)
	if err != nil {
		return fmt.Errorf("%s failed: %s", operation, status.Convert(err).Message())
	}
	return writeOutput(cmd.OutOrStdout(), opts.format, out.AsMap())
}
