package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/claimsift/internal/logging"
	"github.com/ppiankov/claimsift/internal/model"
)

// Version is set at build time.
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "claimsift",
	Short: "claimsift - drug safety evidence mining and claim synthesis",
	Long: `claimsift turns biomedical article text into a validated set of
drug-safety claims for one medical condition.

It finds drug mentions, classifies and scores the surrounding text as
risk or safety evidence, packs the best snippets into token-bounded
model requests, and merges the structured replies into one claim set
per condition.

claimsift summarises literature. It does not give medical advice.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "claimsift %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.claimsift/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// envBindings maps config keys to extra environment variables read
// alongside CLAIMSIFT_<KEY>.
var envBindings = map[string][]string{
	"llm.provider":        nil,
	"llm.model":           nil,
	"llm.api_key":         nil,
	"llm.base_url":        {"OLLAMA_BASE_URL"},
	"llm.http_proxy":      {"HTTP_PROXY"},
	"llm.https_proxy":     {"HTTPS_PROXY"},
	"llm.no_proxy":        {"NO_PROXY"},
	"store.driver":        nil,
	"store.dsn":           {"CLAIMSIFT_DATABASE_DSN", "DATABASE_URL"},
	"cache.enabled":       nil,
	"cache.dir":           nil,
	"log.level":           nil,
	"log.format":          nil,
	"metrics.enabled":     nil,
	"metrics.addr":        nil,
	"concurrency.workers": nil,
	"concurrency.batches": nil,
}

// initConfig reads .env, the config file and environment variables
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) && verbose {
		fmt.Fprintf(os.Stderr, "Ignoring .env: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.claimsift")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("CLAIMSIFT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for key, extra := range envBindings {
		names := append([]string{"CLAIMSIFT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, extra...)
		_ = viper.BindEnv(append([]string{key}, names...)...)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers the config file and environment over the defaults.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// resolveAPIKey fills the provider key from the conventional variables.
func resolveAPIKey(cfg *model.Config) error {
	if cfg.LLM.APIKey != "" {
		return nil
	}
	switch cfg.LLM.Provider {
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	}
	return nil
}

func newLogger(cfg *model.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log)
}
