package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimsift/internal/model"
	"github.com/ppiankov/claimsift/internal/store/postgres"
	"github.com/ppiankov/claimsift/internal/vocab"
)

var (
	claimsMesh string
	claimsDrug string
	claimsJSON bool
)

// claimsCmd represents the claims command
var claimsCmd = &cobra.Command{
	Use:   "claims [mesh-signature]",
	Short: "Show the stored claim set for a condition",
	Long: `Claims reads a persisted claim set from the Postgres store. Pass the
set's mesh signature, or the condition's MeSH terms with --mesh. With
--drug, list the signatures of every set that has a claim about a drug
or drug class.

Example:
  claimsift claims "malignant hyperthermia"
  claimsift claims --mesh "Malignant Hyperthermia;Anesthetics" --json
  claimsift claims --drug succinylcholine`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var signature string
		switch {
		case claimsDrug != "":
		case claimsMesh != "":
			signature = vocab.MeshSignature(strings.Split(claimsMesh, ";"))
		case len(args) == 1:
			signature = args[0]
		default:
			return fmt.Errorf("pass a mesh signature, --mesh or --drug")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required (set CLAIMSIFT_DATABASE_DSN)")
		}
		s, err := postgres.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return fmt.Errorf("open postgres store: %w", err)
		}
		defer s.Close()

		if claimsDrug != "" {
			signatures, err := s.SignaturesForTerm(cmd.Context(), claimsDrug, "")
			if err != nil {
				return err
			}
			if len(signatures) == 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "No claim sets mention %q\n", claimsDrug)
			}
			for _, sig := range signatures {
				fmt.Fprintln(cmd.OutOrStdout(), sig)
			}
			return nil
		}

		set, err := s.GetClaimSet(cmd.Context(), signature)
		if err != nil {
			return err
		}

		if claimsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(set)
		}
		printClaimSet(cmd, set)
		return nil
	},
}

func printClaimSet(cmd *cobra.Command, set *model.ClaimSet) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s [%s]\n", set.ConditionLabel, set.MeshSignature)
	fmt.Fprintf(out, "Updated %s, %d claims\n\n", set.CreatedAt.Format("2006-01-02 15:04"), len(set.Claims))
	for _, c := range set.Claims {
		marker := ""
		if c.SevereReaction {
			marker = " ⚠"
		}
		fmt.Fprintf(out, "[%s/%s]%s %s\n", c.Classification, c.Confidence, marker, c.Summary)
		fmt.Fprintf(out, "    drugs: %s\n", strings.Join(c.Drugs, ", "))
		fmt.Fprintf(out, "    evidence: %d snippets from %d articles\n", len(c.Evidence), len(c.Articles))
	}
}

func init() {
	rootCmd.AddCommand(claimsCmd)
	claimsCmd.Flags().StringVar(&claimsMesh, "mesh", "", "semicolon-separated MeSH terms of the condition")
	claimsCmd.Flags().StringVar(&claimsDrug, "drug", "", "list signatures of sets with claims about this drug or class")
	claimsCmd.Flags().BoolVar(&claimsJSON, "json", false, "print the claim set as JSON")
}
