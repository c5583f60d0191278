package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/claimsift/internal/model"
	"github.com/ppiankov/claimsift/internal/pipeline"
	"github.com/ppiankov/claimsift/internal/source"
	"github.com/ppiankov/claimsift/internal/worker"
)

var (
	outputDir      string
	refreshTimeout time.Duration
	parallel       int
	noCache        bool
	llmProvider    string
	llmModel       string
	storeDriver    string
	serveMetrics   bool
)

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh <articles-file>...",
	Short: "Build and persist the claim set for one or more conditions",
	Long: `Refresh runs the full pipeline for each articles file:
- Find drug mentions and classify the surrounding text
- Score, prune and allocate snippets across articles
- Pack snippets into token-bounded model requests
- Validate and merge the replies into one claim set
- Replace the stored claim set for the condition
- Write JSON and Markdown reports

Each file holds one condition: {condition, mesh_terms, articles[]}.

Example:
  claimsift refresh mh.yaml
  claimsift refresh mh.yaml myopathy.json --parallel 2 --output-dir ./reports
  claimsift refresh mh.yaml --llm-provider anthropic --store postgres`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)

	refreshCmd.Flags().StringVar(&outputDir, "output-dir", "./claimsift-reports", "output directory for reports")
	refreshCmd.Flags().DurationVar(&refreshTimeout, "timeout", 15*time.Minute, "total timeout for all refreshes")
	refreshCmd.Flags().IntVar(&parallel, "parallel", min(runtime.NumCPU(), 4), "conditions refreshed concurrently")
	refreshCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the model response cache")
	refreshCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "model provider (openai, anthropic, ollama)")
	refreshCmd.Flags().StringVar(&llmModel, "llm-model", "", "model name")
	refreshCmd.Flags().StringVar(&storeDriver, "store", "", "claim set store (memory, postgres)")
	refreshCmd.Flags().BoolVar(&serveMetrics, "metrics", false, "serve Prometheus metrics while running")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), refreshTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if storeDriver != "" {
		cfg.Store.Driver = storeDriver
	}
	if serveMetrics {
		cfg.Metrics.Enabled = true
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Files:      %d\n", len(args))
		fmt.Fprintf(os.Stderr, "Provider:   %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Fprintf(os.Stderr, "Store:      %s\n", cfg.Store.Driver)
		fmt.Fprintf(os.Stderr, "Cache:      %v\n", cfg.Cache.Enabled)
		fmt.Fprintf(os.Stderr, "Output dir: %s\n\n", outputDir)
	}

	c, err := buildComponents(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer c.close()

	if c.metrics != nil {
		go func() {
			if err := c.metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				c.logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var opts []worker.PoolOption
	if verbose {
		opts = append(opts, worker.WithProgress(func(done, submitted int, r worker.Result) {
			fmt.Fprintf(os.Stderr, "[%d/%d] refresh finished\n", done, submitted)
		}))
	}
	pool := worker.NewPool(ctx, parallel, opts...)
	pool.Start()
	for _, path := range args {
		pool.Submit(&refreshJob{path: path, pipeline: c.pipeline})
	}
	results := pool.Wait()

	failures := 0
	for _, r := range results {
		res, ok := r.(*refreshResult)
		if !ok {
			failures++
			fmt.Fprintf(os.Stderr, "✗ %v\n", r.GetError())
			continue
		}
		if res.err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", res.path, res.err)
			continue
		}

		slug := sanitizeFilename(res.report.Condition)
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")
		if err := pipeline.WriteFile(jsonPath, res.report, pipeline.WriteJSON); err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", res.path, err)
			continue
		}
		if err := pipeline.WriteFile(mdPath, res.report, pipeline.WriteMarkdown); err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", res.path, err)
			continue
		}

		pipeline.WriteSummary(cmd.OutOrStdout(), res.report)
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote %s and %s\n", jsonPath, mdPath)
		}
	}

	if missing := len(args) - len(results); missing > 0 {
		failures += missing
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d refreshes failed", failures, len(args))
	}
	return nil
}

// refreshJob refreshes the condition in one articles file.
type refreshJob struct {
	path     string
	pipeline *pipeline.Pipeline
}

type refreshResult struct {
	path   string
	report *model.Report
	err    error
}

func (r *refreshResult) GetError() error {
	return r.err
}

// Execute implements worker.Job.
func (j *refreshJob) Execute(ctx context.Context) worker.Result {
	corpus, err := source.LoadFile(j.path)
	if err != nil {
		return &refreshResult{path: j.path, err: err}
	}
	report, err := j.pipeline.Refresh(ctx, corpus)
	return &refreshResult{path: j.path, report: report, err: err}
}

// sanitizeFilename turns a condition label into a file name
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(strings.ToLower(strings.TrimSpace(s)))
	if s == "" || s == "." || s == ".." {
		s = "condition"
	}
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
