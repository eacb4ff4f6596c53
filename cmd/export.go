package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/x4tools/projector/internal/export"
	"github.com/x4tools/projector/internal/resolve"
	"github.com/x4tools/projector/internal/wares"
)

var (
	formatName string
	outDir     string
)

var exportCmd = &cobra.Command{
	Use:   "export [kind...]",
	Short: "Export object kinds to the chosen format",
	Long: `Export resolves and writes the requested kinds, one output file per
kind (or one SQLite database). Without arguments every catalog kind plus
the ware table is exported. The special kind "wares" selects the trade
ware table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		format, err := export.ParseFormat(formatName)
		if err != nil {
			return err
		}
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		src, err := openSource(logger)
		if err != nil {
			return err
		}
		lr := loadLanguage(src, logger)

		kinds := args
		withWares := false
		if len(kinds) == 0 {
			kinds = catalog.Names()
			withWares = true
		} else {
			filtered := kinds[:0]
			for _, k := range kinds {
				if k == "wares" {
					withWares = true
					continue
				}
				filtered = append(filtered, k)
			}
			kinds = filtered
		}

		session, err := resolve.NewSession(src, catalog,
			resolve.WithLanguage(lr), resolve.WithLogger(logger))
		if err != nil {
			return err
		}
		for _, kind := range kinds {
			if err := session.LoadKind(kind); err != nil {
				return err
			}
		}

		sets, err := session.ResolveAll(cmd.Context(), kinds)
		if err != nil {
			return err
		}
		if withWares {
			records, err := wares.Load(src, lr, logger)
			if err != nil {
				return err
			}
			sets["wares"] = records
		}

		for _, d := range session.Diagnostics() {
			logger.Warn("resolution diagnostic", "diag", d.String())
		}
		if lr != nil {
			for _, field := range lr.Unresolved() {
				logger.Warn("unresolved placeholder", "field", field)
			}
		}

		dir, err := filepath.Abs(outDir)
		if err != nil {
			return fmt.Errorf("resolve output directory: %w", err)
		}
		written, err := export.WriteAll(osfs.New("/"), format, dir, sets)
		if err != nil {
			return err
		}
		for _, p := range written {
			logger.Info("wrote", "path", p)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&formatName, "format", "f", "csv", "output format: csv, json, yaml or sqlite")
	exportCmd.Flags().StringVarP(&outDir, "out", "o", "out", "output directory")
	rootCmd.AddCommand(exportCmd)
}
