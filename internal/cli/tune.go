package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimsift/internal/prune"
	"github.com/ppiankov/claimsift/internal/source"
	"github.com/ppiankov/claimsift/internal/tune"
	"github.com/ppiankov/claimsift/internal/worker"
)

var (
	tuneBases   string
	tuneMaxes   string
	tuneWindows string
	tuneTop     int
	tuneJSON    bool
)

// tuneCmd represents the tune command
var tuneCmd = &cobra.Command{
	Use:   "tune <articles-file>",
	Short: "Grid-search quota and window settings",
	Long: `Tune evaluates combinations of per-article quota bases, maxima and
window radii against a condition's articles. Each setting is scored on
classification coverage and mean snippet score. No model is called.

Example:
  claimsift tune mh.yaml
  claimsift tune mh.yaml --bases 2,3,4 --maxes 4,6,8 --windows 200,280`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bases, err := parseInts(tuneBases)
		if err != nil {
			return fmt.Errorf("--bases: %w", err)
		}
		maxes, err := parseInts(tuneMaxes)
		if err != nil {
			return fmt.Errorf("--maxes: %w", err)
		}
		windows, err := parseInts(tuneWindows)
		if err != nil {
			return fmt.Errorf("--windows: %w", err)
		}

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

		configs := tune.WithWindows(tune.GenerateQuotaGrid(cfg.Quota, bases, maxes), windows)
		searcher := &tune.Searcher{
			Extractor:  func(w int) worker.Extractor { return c.pipeline.ExtractorFor(w) },
			Processors: prune.DefaultPostProcessors(cfg.Extraction.LimitPerDrug),
			Workers:    cfg.Concurrency.Workers,
		}
		results, err := searcher.GridSearch(cmd.Context(), corpus, configs, tune.DefaultEvaluator)
		if err != nil {
			return err
		}
		if tuneTop > 0 && len(results) > tuneTop {
			results = results[:tuneTop]
		}

		if tuneJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RANK\tWINDOW\tBASE\tMAX\tSCORE\tSNIPPETS")
		for i, r := range results {
			window := "default"
			if r.Config.WindowChars > 0 {
				window = strconv.Itoa(r.Config.WindowChars)
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%.3f\t%.1f\n",
				i+1, window, r.Config.Quota.BaseQuota, r.Config.Quota.MaxQuota, r.Score, r.Snippets)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(tuneCmd)
	tuneCmd.Flags().StringVar(&tuneBases, "bases", "2,3,4", "comma-separated per-article base quotas")
	tuneCmd.Flags().StringVar(&tuneMaxes, "maxes", "4,6,8", "comma-separated per-article maximum quotas")
	tuneCmd.Flags().StringVar(&tuneWindows, "windows", "", "comma-separated window radii (empty = configured)")
	tuneCmd.Flags().IntVar(&tuneTop, "top", 10, "show the n best settings (0 = all)")
	tuneCmd.Flags().BoolVar(&tuneJSON, "json", false, "print results as JSON")
}

// parseInts parses a comma-separated list of positive integers.
func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", part)
		}
		if n <= 0 {
			return nil, fmt.Errorf("%d must be positive", n)
		}
		out = append(out, n)
	}
	return out, nil
}
