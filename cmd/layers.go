package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/x4tools/projector/internal/overlay"
)

var layersCmd = &cobra.Command{
	Use:   "layers [path]",
	Short: "Show the discovered archive layers",
	Long: `Layers lists every mounted .cat/.dat pair in priority order. With a
path argument it instead shows which layers define that file and which
one wins.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		if loaderName != "cat" {
			return fmt.Errorf("layers requires the cat loader")
		}
		src, err := openSource(logger)
		if err != nil {
			return err
		}
		o := src.(*overlay.Overlay)
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			path := args[0]
			h, ok := o.Resolve(path)
			if !ok {
				return fmt.Errorf("no layer defines %s", path)
			}
			for _, rank := range o.Shadowed(path) {
				marker := " "
				if rank == h.Rank() {
					marker = "*"
				}
				fmt.Fprintf(out, "%s rank %02d\n", marker, rank)
			}
			fmt.Fprintf(out, "winner: rank %02d, %d bytes\n", h.Rank(), h.Size())
			return nil
		}

		for _, layer := range o.Layers() {
			fmt.Fprintf(out, "rank %02d  %-40s  %d files\n", layer.Rank, layer.CatPath, layer.Len())
		}
		if exts := o.Extensions(); len(exts) > 0 {
			fmt.Fprintln(out, "extensions:")
			for _, ext := range exts {
				fmt.Fprintf(out, "  %s\n", ext)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(layersCmd)
}
