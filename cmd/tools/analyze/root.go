package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/soltixdb/tsinsight/internal/config"
	"github.com/soltixdb/tsinsight/internal/logging"
	"github.com/soltixdb/tsinsight/internal/profiles"
	"github.com/soltixdb/tsinsight/internal/services"

	insightgrpc "github.com/soltixdb/tsinsight/internal/grpc"
)

// Version is injected via ldflags during build
var Version = "dev"

// analyzer runs one Analyze call, locally or against a server
type analyzer interface {
	Analyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Close() error
}

// options holds the persistent flags shared by every subcommand
type options struct {
	configPath string
	format     string
	server     string
	timeout    time.Duration
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "tsinsight-analyze",
		Short: "Run tsinsight analytics on local series files",
		Long: `Run statistics, trend, forecast and anomaly detection on a series file.

A series file is a JSON array of numbers, a JSON array of
{"value": ..., "timestamp": ...} observations, or one number per line.
Use "-" to read from stdin.

Examples:
  tsinsight-analyze stats cpu.txt
  tsinsight-analyze forecast --periods 14 --method moving_average cpu.json
  tsinsight-analyze detect --method iqr --format json cpu.txt
  tsinsight-analyze detect --server localhost:5555 --series cpu cpu.txt`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("tsinsight-analyze version {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Configuration file supplying analytics thresholds")
	flags.StringVar(&opts.format, "format", formatYAML, "Output format (yaml, json)")
	flags.StringVar(&opts.server, "server", "", "Run remotely against this gRPC address instead of in-process")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Timeout for one analysis")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")

	root.AddCommand(
		newStatsCmd(opts),
		newTrendCmd(opts),
		newForecastCmd(opts),
		newDetectCmd(opts),
		newPublishCmd(opts),
	)
	return root
}

func (o *options) logger(cmd *cobra.Command) *logging.Logger {
	if !o.verbose {
		return logging.NewNop()
	}
	return logging.NewWithWriter(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}, zerolog.DebugLevel)
}

func (o *options) loadConfig() (*config.Config, error) {
	if o.configPath == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(o.configPath)
}

// newAnalyzer returns a gRPC client when --server is set, otherwise an
// in-process handler over the analytics service
func (o *options) newAnalyzer(cmd *cobra.Command) (analyzer, error) {
	if o.server != "" {
		conn, err := grpc.NewClient(o.server, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", o.server, err)
		}
		return &remoteAnalyzer{conn: conn, client: insightgrpc.NewAnalyticsServiceClient(conn)}, nil
	}

	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := o.logger(cmd)

	store, err := profiles.NewStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	svc := services.NewAnalyticsService(logger, cfg.Analytics, store, nil)
	return &localAnalyzer{handler: insightgrpc.NewAnalyticsHandler(logger, svc), store: store}, nil
}

type localAnalyzer struct {
	handler *insightgrpc.AnalyticsHandler
	store   profiles.Store
}

func (a *localAnalyzer) Analyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return a.handler.Analyze(ctx, req)
}

func (a *localAnalyzer) Close() error {
	return a.store.Close()
}

type remoteAnalyzer struct {
	conn   *grpc.ClientConn
	client *insightgrpc.AnalyticsServiceClient
}

func (a *remoteAnalyzer) Analyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return a.client.Analyze(ctx, req)
}

func (a *remoteAnalyzer) Close() error {
	return a.conn.Close()
}
