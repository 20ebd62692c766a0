// Package askdb is the local command line front end. It builds the full
// pipeline in process, so no API server is needed.
package askdb

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/app"
	"github.com/askdb/askdb/internal/chat"
	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/observability"
)

const serviceName = "askdb"

type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Lookup config.LookupFunc
	Build  app.BuildFunc
}

type runner struct {
	opts Options

	metadataPath string
	provider     string
	model        string
	driver       string
	dsn          string
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, opts Options) int {
	cmd := NewRootCommand(opts)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), chat.FormatError(err))
		return 1
	}
	return 0
}

func NewRootCommand(opts Options) *cobra.Command {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if opts.Lookup == nil {
		opts.Lookup = os.LookupEnv
	}
	if opts.Build == nil {
		opts.Build = app.Build
	}
	r := &runner{opts: opts}

	root := &cobra.Command{
		Use:   "askdb",
		Short: "Ask questions about a relational database in plain language",
		Long: `askdb turns a natural-language question into a read-only SQL query,
runs it and prints the rows as text.

Table metadata, the database and the model backend are configured through
ASKDB_* environment variables or a .env file; the flags below override them.

Run without a subcommand to start an interactive chat.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          r.runChat,
	}
	root.SetIn(opts.Stdin)
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&r.metadataPath, "metadata", "", "table metadata document (overrides ASKDB_METADATA_PATH)")
	flags.StringVar(&r.provider, "provider", "", "model backend: ollama, openai or gemini (overrides ASKDB_AI_PROVIDER)")
	flags.StringVar(&r.model, "model", "", "model name (overrides ASKDB_AI_MODEL)")
	flags.StringVar(&r.driver, "driver", "", "database driver: pgx or duckdb (overrides ASKDB_DB_DRIVER)")
	flags.StringVar(&r.dsn, "dsn", "", "database connection string (overrides ASKDB_DB_DSN)")

	root.AddCommand(
		r.newAskCommand(),
		r.newChatCommand(),
		r.newTablesCommand(),
		r.newPromptCommand(),
	)
	return root
}

func (r *runner) loadConfig() (config.Config, error) {
	overrides := map[string]string{}
	for key, value := range map[string]string{
		"ASKDB_METADATA_PATH": r.metadataPath,
		"ASKDB_AI_PROVIDER":   r.provider,
		"ASKDB_AI_MODEL":      r.model,
		"ASKDB_DB_DRIVER":     r.driver,
		"ASKDB_DB_DSN":        r.dsn,
	} {
		if strings.TrimSpace(value) != "" {
			overrides[key] = value
		}
	}
	return config.Load(serviceName, func(key string) (string, bool) {
		if value, ok := overrides[key]; ok {
			return value, true
		}
		return r.opts.Lookup(key)
	})
}

// build assembles the application; the returned func closes the log sink.
func (r *runner) build(ctx context.Context) (*app.App, func(), error) {
	cfg, err := r.loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, closeLogger := observability.NewLogger(cfg, r.opts.Stderr)
	a, err := r.opts.Build(ctx, cfg, logger)
	if err != nil {
		closeLogger()
		return nil, nil, err
	}
	return a, closeLogger, nil
}

func questionFromArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
