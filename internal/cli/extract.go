package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimsift/internal/source"
)

var extractLimit int

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <articles-file>",
	Short: "Print the snippets selected for a condition",
	Long: `Extract runs candidate finding, pruning and quota allocation without
calling a model, and prints the selected snippets as JSON.

Example:
  claimsift extract mh.yaml
  claimsift extract mh.yaml --limit 10`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := buildComponents(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer c.close()

		corpus, err := source.LoadFile(args[0])
		if err != nil {
			return err
		}
		prep, err := c.pipeline.Extract(cmd.Context(), corpus)
		if err != nil {
			return err
		}

		snippets := prep.Snippets
		if extractLimit > 0 && len(snippets) > extractLimit {
			snippets = snippets[:extractLimit]
		}
		if verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "Signature:  %s\n", prep.Signature)
			fmt.Fprintf(cmd.ErrOrStderr(), "Articles:   %d\n", prep.Articles)
			fmt.Fprintf(cmd.ErrOrStderr(), "Candidates: %d (pruned to %d)\n", prep.Candidates, prep.Pruned)
			fmt.Fprintf(cmd.ErrOrStderr(), "Snippets:   %d\n\n", len(prep.Snippets))
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snippets)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().IntVar(&extractLimit, "limit", 0, "print at most n snippets (0 = all)")
}
