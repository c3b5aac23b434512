// Package cmd is the metaworker command line.
package cmd

import (
	"context"
	"encoding/json"
	"io"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"sjsage522/metaworker/config"
	"sjsage522/metaworker/internal/extractor"
	"sjsage522/metaworker/internal/metrics"
	"sjsage522/metaworker/logger"
)

func newCmdRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metaworker <command> [flags]",
		Short: "Media metadata extraction worker",
		Long: heredoc.Doc(`
			Resolve listing or detail page URLs of the supported media sites into
			normalized metadata records. Settings come from the environment or a
			.env file in the working directory.
		`),
		Example: heredoc.Doc(`
			$ metaworker serve --addr :8080
			$ metaworker extract "https://www.javbus.com/ABC-123"
			$ metaworker batch urls.txt --concurrency 4
			$ metaworker cache export s3://snapshots/cache.json
		`),
		Annotations: map[string]string{
			"versionInfo": "1.0",
		},
		SilenceUsage: true,
	}

	cmd.AddCommand(
		newCmdServe(),
		newCmdExtract(),
		newCmdBatch(),
		newCmdSources(),
		newCmdCache(),
	)
	return cmd
}

// Execute runs the command line
func Execute() error {
	return newCmdRoot().ExecuteContext(context.Background())
}

// factory holds what every command needs, built from the environment
type factory struct {
	Config  *config.Config
	Engine  *extractor.Engine
	Metrics *metrics.Metrics
	closer  extractor.Closer
}

func newFactory(ctx context.Context) (*factory, error) {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := metrics.New()
	engine, closer, err := extractor.NewFromConfig(ctx, cfg, m)
	if err != nil {
		return nil, err
	}
	return &factory{Config: cfg, Engine: engine, Metrics: m, closer: closer}, nil
}

func (f *factory) Close() {
	if err := f.closer(); err != nil {
		logger.Default.Warn().Err(err).Msg("Failed to release resources")
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
