// Package cmd wires the command line interface: flag handling, source
// construction and dispatch into the loading and export pipeline.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/x4tools/projector/api"
	"github.com/x4tools/projector/internal/lang"
	"github.com/x4tools/projector/internal/overlay"
)

var (
	gameRoot    string
	loaderName  string
	langName    string
	catalogPath string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "x4projector",
	Short: "Extract structured object data from an X4: Foundations installation",
	Long: `x4projector reads the game's layered .cat/.dat archives (or an
already-extracted game tree), resolves macro inheritance and connection
references, and renders ships, equipment and wares into interchange formats.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&gameRoot, "game-root", "g", "", "path to the game installation root")
	rootCmd.PersistentFlags().StringVar(&loaderName, "loader", "cat", "game file loader: cat (packed archives) or fs (extracted tree)")
	rootCmd.PersistentFlags().StringVarP(&langName, "lang", "l", "en", "language for resolved names and descriptions")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "kind catalog HCL file (default: built-in catalog)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	_ = rootCmd.MarkPersistentFlagRequired("game-root")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openSource builds the game file source selected by --loader.
func openSource(logger *slog.Logger) (overlay.Source, error) {
	root, err := filepath.Abs(gameRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve game root: %w", err)
	}
	fs := osfs.New(root)

	switch loaderName {
	case "cat":
		return overlay.Discover(fs, logger)
	case "fs":
		return overlay.NewFSSource(fs), nil
	default:
		return nil, fmt.Errorf("unknown loader %q (want cat or fs)", loaderName)
	}
}

// loadCatalog returns the --catalog file or the built-in catalog.
func loadCatalog() (*api.Catalog, error) {
	if catalogPath == "" {
		return api.Default(), nil
	}
	return api.LoadFile(catalogPath)
}

// loadLanguage loads the language file for --lang out of the game source.
// A missing language file is not fatal; name templates stay unresolved.
func loadLanguage(src overlay.Source, logger *slog.Logger) *lang.Resolver {
	path, ok := lang.FileForLocale(langName)
	if !ok {
		logger.Warn("unknown language, names stay unresolved", "lang", langName)
		return nil
	}
	data, err := src.Open(path)
	if err != nil {
		logger.Warn("language file unavailable, names stay unresolved", "path", path, "err", err)
		return nil
	}
	lr, err := lang.Load(langName, data)
	if err != nil {
		logger.Warn("language file unreadable, names stay unresolved", "path", path, "err", err)
		return nil
	}
	return lr
}
