package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"viewforge/internal/catalog"
	"viewforge/internal/manifest"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var downloadDirFlag string
	var manifestFlag string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Register downloaded object files in the manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if downloadDirFlag != "" {
				cfg.DownloadDir = downloadDirFlag
			}
			if manifestFlag != "" {
				cfg.Manifest = manifestFlag
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			store, err := manifest.LoadOrCreate(cfg.Manifest)
			if err != nil {
				return fmt.Errorf("load manifest: %w", err)
			}
			result, err := catalog.Scan(store, cfg.DownloadDir, logger)
			if err != nil {
				return err
			}
			if result.Added > 0 {
				if err := store.Persist(); err != nil {
					return fmt.Errorf("persist manifest: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Discovered %d object files; added %d, already tracked %d\n",
				result.Discovered, result.Added, result.Skipped)
			fmt.Fprintf(out, "Manifest: %s (%d objects)\n", store.Path(), store.Len())
			return nil
		},
	}

	cmd.Flags().StringVar(&downloadDirFlag, "download_dir", "", "Directory of downloaded objects to scan (overrides config)")
	cmd.Flags().StringVar(&manifestFlag, "manifest", "", "Manifest file path (overrides config)")
	return cmd
}
