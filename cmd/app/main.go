package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/gtdspace/internal"
	"github.com/starford/gtdspace/internal/document"
	"github.com/starford/gtdspace/internal/metadata"
	pkgconfig "github.com/starford/gtdspace/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr)); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

func initSpace(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	res, err := internal.InitSpace(ctx, cmd.Bool("examples"), internal.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("init space: %w", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// readInput reads a named file, or stdin for "" and "-".
func readInput(name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

func extract(_ context.Context, cmd *cli.Command) error {
	data, err := readInput(cmd.Args().First())
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(metadata.NewRegistry().Extract(string(data)))
}

func build(_ context.Context, cmd *cli.Command) error {
	entity := cmd.Args().First()
	if entity == "" {
		return fmt.Errorf("entity is required (one of %v)", document.Entities)
	}
	fields := []byte(cmd.String("fields"))
	if len(fields) == 0 {
		var err error
		if fields, err = io.ReadAll(os.Stdin); err != nil {
			return fmt.Errorf("read fields: %w", err)
		}
	}
	var existing string
	if p := cmd.String("existing"); p != "" {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read existing document: %w", err)
		}
		existing = string(data)
	}
	out, err := document.Build(entity, fields, existing)
	if err != nil {
		return err
	}
	_, err = io.WriteString(os.Stdout, out)
	return err
}

func main() {
	cmd := &cli.Command{
		Name:   "gtdspace",
		Usage:  "GTD space server: Markdown field markers, editor blocks, canonical documents and a searchable index",
		Action: serve,
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
				Name:   "serve",
				Usage:  "Run the HTTP API and file watcher",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:   "init",
				Usage:  "Create the space directories, horizon pages and welcome document",
				Action: initSpace,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "examples", Usage: "Also write sample habits, a project, a Someday idea and a Cabinet note"},
				},
			},
			{
				Name:      "extract",
				Usage:     "Print the metadata of a Markdown document as JSON",
				ArgsUsage: "<file|->",
				Action:    extract,
			},
			{
				Name:      "build",
				Usage:     "Print a canonical entity document built from JSON fields",
				ArgsUsage: "<habit|area|goal|vision|project|action|horizon>",
				Action:    build,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "fields", Aliases: []string{"f"}, Usage: "Entity fields as JSON (default: stdin)"},
					&cli.StringFlag{Name: "existing", Aliases: []string{"e"}, Usage: "Existing document to merge"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
