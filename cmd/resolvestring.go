package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resolveStringCmd = &cobra.Command{
	Use:   "resolve-string <template>",
	Short: "Resolve a {page,text} language template",
	Long: `Resolve a game string template like "{20101,20401}" against the
selected language and print the result. Placeholders without a language
entry are kept verbatim and reported.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		src, err := openSource(logger)
		if err != nil {
			return err
		}
		lr := loadLanguage(src, logger)
		if lr == nil {
			return fmt.Errorf("language %q not available in this installation", langName)
		}

		fmt.Fprintln(cmd.OutOrStdout(), lr.ResolveStripped(args[0]))
		for _, field := range lr.Unresolved() {
			logger.Warn("unresolved placeholder", "field", field)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveStringCmd)
}
