package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/benjaminschreck/go-ooxml/internal/config"
	"github.com/benjaminschreck/go-ooxml/internal/storage"
	"github.com/benjaminschreck/go-ooxml/internal/tools"
	"github.com/benjaminschreck/go-ooxml/pkg/ooxml"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

type globalFlags struct {
	dir        string
	configFile string
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "ooxml",
		Short:         "Edit Word and PowerPoint packages",
		Long:          "ooxml applies structural edits to .docx and .pptx files and serves them as MCP tools.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.dir, "dir", "", "directory holding ooxml.toml and .env (default: working directory)")
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file (default: <dir>/ooxml.toml if present)")

	root.AddCommand(newServeCmd(&flags))
	root.AddCommand(newInspectCmd(&flags))
	root.AddCommand(newVersionCmd())
	return root
}

// loadConfig reads the process configuration and applies the engine part
// globally so the logger picks up the level.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(config.Options{Dir: flags.dir, File: flags.configFile})
	if err != nil {
		return nil, err
	}
	ooxml.SetGlobalConfig(cfg.EngineConfig())
	return cfg, nil
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the editing tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			ledger := storage.NewLedger(cfg.Storage.LedgerPath)
			defer func() { _ = ledger.Close() }()
			if err := os.MkdirAll(cfg.Storage.OutputDir, 0o755); err != nil {
				return err
			}
			if err := ledger.Init(cmd.Context()); err != nil {
				return fmt.Errorf("open ledger %s: %w", cfg.Storage.LedgerPath, err)
			}

			handler := tools.NewHandler(
				ooxml.NewWithConfig(cfg.EngineConfig()),
				storage.NewFetcher(cfg.Storage.HTTPTimeout, cfg.Engine.MaxPackageBytes, cfg.Storage.OutputDir),
				storage.NewDirUploader(cfg.Storage.OutputDir, ledger),
			)
			s := tools.NewServer(cfg.Server.Name, version, handler)

			// stdout carries the protocol
			ooxml.WithFields(ooxml.Fields{"output_dir": cfg.Storage.OutputDir, "ledger": cfg.Storage.LedgerPath}).
				Info("serving %s %s on stdio", cfg.Server.Name, version)
			return server.ServeStdio(s)
		},
	}
}

func newInspectCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file-or-url>",
		Short: "Print the parts and the slides or paragraphs of a package as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			src, err := storage.NewFetcher(cfg.Storage.HTTPTimeout, cfg.Engine.MaxPackageBytes, "").Fetch(ctx, args[0])
			if err != nil {
				return err
			}
			inspection, err := ooxml.NewWithConfig(cfg.EngineConfig()).Inspect(src.Data)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(inspection)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "ooxml", version)
		},
	}
}
