package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/planboard/internal"
	"github.com/starford/planboard/internal/icsync"
	"github.com/starford/planboard/internal/mcpserver"
	"github.com/starford/planboard/internal/report"
	pkgconfig "github.com/starford/planboard/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// openWorkspace loads the config and opens the store for one-shot commands.
// Logs go to stderr so stdout stays free for command output.
func openWorkspace(ctx context.Context, cmd *cli.Command) (*internal.Config, *internal.Workspace, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel})))
	ws, err := internal.OpenWorkspace(ctx, cfg, nil)
	if err != nil {
		return nil, nil, err
	}
	return cfg, ws, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, ws, err := openWorkspace(ctx, cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	return mcpserver.New(ws.Service, cfg.App.Preview).ServeStdio()
}

func runInsights(ctx context.Context, cmd *cli.Command) error {
	cfg, ws, err := openWorkspace(ctx, cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	if cmd.Bool("no-color") {
		color.NoColor = true
	}
	project := cmd.String("project")
	r, err := ws.Service.Insights(ctx, project)
	if err != nil {
		return fmt.Errorf("insights for %s: %w", project, err)
	}
	plan, err := ws.Service.Autoplan(ctx, project)
	if err != nil {
		return fmt.Errorf("autoplan for %s: %w", project, err)
	}
	report.Write(color.Output, r, plan, cfg.App.Preview)
	return nil
}

func runImport(ctx context.Context, cmd *cli.Command) error {
	file := cmd.Args().First()
	if file == "" {
		return fmt.Errorf("usage: import --project <id> <file.ics>")
	}
	body, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	_, ws, err := openWorkspace(ctx, cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	project := cmd.String("project")
	path, err := ws.Importer.Deliver(ctx, project, filepath.Base(file), body, icsync.OriginUpload)
	if err != nil {
		return fmt.Errorf("import %s: %w", file, err)
	}
	events, err := ws.Service.ListEvents(ctx, project)
	if err != nil {
		return err
	}
	_, _ = color.New(color.FgGreen, color.Bold).Printf("✓ imported %s into %s (%d events in project)\n", path, project, len(events))
	return nil
}

func main() {
	projectFlag := &cli.StringFlag{
		Name:     "project",
		Aliases:  []string{"p"},
		Usage:    "Project id",
		Required: true,
	}

	cmd := &cli.Command{
		Name:   "planboard",
		Usage:  "Project scheduling insights: timeline, coverage, autoplan and slot proposals",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: runMCP,
			},
			{
				Name:  "insights",
				Usage: "Print the insights and autoplan preview of a project",
				Flags: []cli.Flag{
					projectFlag,
					&cli.BoolFlag{Name: "no-color", Usage: "Disable colored output"},
				},
				Action: runInsights,
			},
			{
				Name:      "import",
				Usage:     "Import an .ics file into a project",
				ArgsUsage: "<file.ics>",
				Flags:     []cli.Flag{projectFlag},
				Action:    runImport,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
