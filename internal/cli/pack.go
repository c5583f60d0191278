package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimsift/internal/model"
	"github.com/ppiankov/claimsift/internal/source"
)

var showPrompts bool

// packCmd represents the pack command
var packCmd = &cobra.Command{
	Use:   "pack <articles-file>",
	Short: "Show how snippets are packed into model requests",
	Long: `Pack prepares a condition and prints each batch with its snippet
count, claim groups and estimated token size. No model is called.

Example:
  claimsift pack mh.yaml
  claimsift pack mh.yaml --prompts`,
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
		prep, err := c.pipeline.Prepare(cmd.Context(), corpus)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%s)\n", prep.Condition.Label, prep.Signature)
		fmt.Fprintf(out, "%d snippets in %d batches, budget %d tokens\n\n",
			len(prep.Snippets), len(prep.Batches), cfg.Batching.MaxPromptTokens)
		for i, b := range prep.Batches {
			fmt.Fprintf(out, "Batch %d: %d snippets, %d groups, ~%d tokens\n",
				i+1, len(b.Snippets), len(b.ClaimGroups), b.TokenEstimate)
			if showPrompts {
				printMessages(out, b.Messages)
			}
		}
		return nil
	},
}

func printMessages(out io.Writer, messages []model.Message) {
	for _, m := range messages {
		fmt.Fprintf(out, "--- %s ---\n%s\n", m.Role, strings.TrimSpace(m.Content))
	}
	fmt.Fprintln(out)
}

func init() {
	rootCmd.AddCommand(packCmd)
	packCmd.Flags().BoolVar(&showPrompts, "prompts", false, "print the rendered messages of each batch")
}
