package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ai_builder_server/internal/export"
	"ai_builder_server/internal/preview"
)

var (
	includePatterns []string
	excludePatterns []string
	projectTitle    string
	outPath         string
	staticOutput    bool
	exportHook      []string
)

var composeCmd = &cobra.Command{
	Use:   "compose [dir]",
	Short: "Compose a directory of project files into one preview document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadSettings()
		if err != nil {
			return err
		}
		defer logger.Sync()

		dir := sourceDir(args)
		files, err := export.LoadDir(dir, includePatterns, excludePatterns)
		if err != nil {
			return err
		}
		title := titleFor(dir)

		var html string
		if staticOutput {
			if html, err = preview.NewStaticRenderer(logger).Render(preview.FileSet(files), title); err != nil {
				return err
			}
		} else {
			doc := newComposer(cfg).Compose(preview.FileSet(files), title)
			logger.Debug("composed preview",
				zap.Int("files", len(files)),
				zap.String("entry", doc.EntryFile),
				zap.Bool("synthesized", doc.Synthesized))
			html = doc.HTML
		}

		if outPath == "" {
			_, err = fmt.Fprint(cmd.OutOrStdout(), html)
			return err
		}
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		return os.WriteFile(outPath, []byte(html), 0o644)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [dir]",
	Short: "Write a directory's files, fences stripped, plus preview.html to --out",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadSettings()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if outPath == "" {
			return fmt.Errorf("--out is required")
		}
		dir := sourceDir(args)
		files, err := export.LoadDir(dir, includePatterns, excludePatterns)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		exporter := export.NewExporter(newComposer(cfg), logger)
		exporter.Hook = exportHook
		written, err := exporter.Export(ctx, outPath, titleFor(dir), files)
		if err != nil {
			return err
		}
		for _, p := range written {
			fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(outPath, p))
		}
		return nil
	},
}

func sourceDir(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return "."
}

// titleFor prefers --title and falls back to the directory's name.
func titleFor(dir string) string {
	if projectTitle != "" {
		return projectTitle
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return filepath.Base(abs)
	}
	return ""
}

func init() {
	for _, c := range []*cobra.Command{composeCmd, exportCmd} {
		c.Flags().StringSliceVar(&includePatterns, "include", nil, "glob patterns of files to include (default all)")
		c.Flags().StringSliceVar(&excludePatterns, "exclude", nil, "glob patterns of files to skip")
		c.Flags().StringVar(&projectTitle, "title", "", "document title (default the directory name)")
		rootCmd.AddCommand(c)
	}
	composeCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the document to this file instead of stdout")
	composeCmd.Flags().BoolVar(&staticOutput, "static", false, "render the script-free static preview")
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "export directory")
	exportCmd.Flags().StringSliceVar(&exportHook, "hook", nil, "command run inside the export directory afterwards, e.g. --hook=npx,serve")
}
