package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soltixdb/tsinsight/internal/analytics"
	"github.com/soltixdb/tsinsight/internal/compression"
	"github.com/soltixdb/tsinsight/internal/models"
	"github.com/soltixdb/tsinsight/internal/monitor"
	"github.com/soltixdb/tsinsight/internal/queue"
	"github.com/soltixdb/tsinsight/internal/utils"
)

func newPublishCmd(opts *options) *cobra.Command {
	var (
		series      string
		codec       string
		queueType   string
		queueURL    string
		subjectBase string
	)
	cmd := &cobra.Command{
		Use:   "publish <file>",
		Short: "Publish a series to the monitor's observation subject",
		Long: `Publish a series file as one observation message for the streaming monitor.

The queue comes from --config unless overridden by --queue and --url.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := monitor.ValidateSeries(series); err != nil {
				return err
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if queueType != "" {
				cfg.Queue.Type = queueType
			}
			if queueURL != "" {
				cfg.Queue.URL = queueURL
			}
			if subjectBase == "" {
				subjectBase = cfg.Monitor.Subject
			}
			if codec == "" {
				codec = cfg.Monitor.Compression
			}

			algo, err := compression.ParseAlgorithm(codec)
			if err != nil {
				return err
			}

			fields, err := readSeriesFile(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			observations, err := toObservations(fields)
			if err != nil {
				return err
			}

			data, err := monitor.EncodeObservations(algo, monitor.ObservationMessage{
				Series:       series,
				Observations: observations,
			})
			if err != nil {
				return err
			}

			pub, err := queue.NewPublisher(cfg.Queue)
			if err != nil {
				return fmt.Errorf("failed to connect to %s queue: %w", cfg.Queue.Type, err)
			}
			defer func() { _ = pub.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), utils.PublishTimeout)
			defer cancel()

			subject := monitor.ObservationSubject(subjectBase, series, utils.QueueType(cfg.Queue.Type))
			if err := pub.Publish(ctx, subject, data); err != nil {
				return err
			}

			opts.logger(cmd).Info("Published observations", "subject", subject, "bytes", len(data))
			return writeOutput(cmd.OutOrStdout(), opts.format, map[string]interface{}{
				"subject":      subject,
				"observations": len(observations),
				"compression":  algo.String(),
				"bytes":        len(data),
			})
		},
	}
	cmd.Flags().StringVar(&series, "series", "", "Series name; appended to the observation subject on nats and memory queues (required)")
	cmd.Flags().StringVar(&codec, "compression", "", "Envelope compression (none, snappy); defaults to monitor.compression")
	cmd.Flags().StringVar(&queueType, "queue", "", "Queue type override (nats, redis, kafka)")
	cmd.Flags().StringVar(&queueURL, "url", "", "Queue URL override")
	cmd.Flags().StringVar(&subjectBase, "subject", "", "Observation subject prefix; defaults to monitor.subject")
	_ = cmd.MarkFlagRequired("series")
	return cmd
}

// toObservations resolves parsed series fields the way the API does
func toObservations(fields map[string]interface{}) (analytics.Series, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var in models.SeriesInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	series, err := in.Resolve(0)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("series file holds no observations")
	}
	return series, nil
}
