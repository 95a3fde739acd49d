package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/haldvik/othala/internal"
	pkgconfig "github.com/haldvik/othala/pkg/config"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

// loadConfig builds the effective config from defaults, the optional
// config file, and command-line overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if v := cmd.String("vault"); v != "" {
		cfg.Vault.Path = v
	}
	if f := cmd.String("format"); f != "" {
		cfg.Report.Format = f
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runAudit(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}
	if out := cmd.String("output"); out != "" {
		opts = append(opts, internal.WithReportPath(out))
	}

	return internal.RunAudit(ctx, opts...)
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func main() {
	commonFlags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:  "vault",
			Usage: "Path to the note vault (overrides config)",
		},
	}

	cmd := &cli.Command{
		Name:  "othala",
		Usage: "Structural integrity auditor for Markdown note vaults: link graph, schema checks, and reports",
		Commands: []*cli.Command{
			{
				Name:   "audit",
				Usage:  "Run a one-shot audit and print or write the report",
				Action: runAudit,
				Flags: append(commonFlags,
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Report format: json or markdown (overrides config)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the report to a file instead of stdout",
					},
				),
			},
			{
				Name:   "serve",
				Usage:  "Serve the audit API with live re-audits on vault changes",
				Action: runServe,
				Flags:  commonFlags,
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP server on stdin/stdout",
				Action: runMCP,
				Flags:  commonFlags,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
