package model

import "time"

// Config holds all runtime configuration for a refresh.
// Values are passed by value into the pure stages; nothing reads globals.
type Config struct {
	Extraction  ExtractionConfig  `yaml:"extraction" mapstructure:"extraction"`
	Scoring     ScoringConfig     `yaml:"scoring" mapstructure:"scoring"`
	Quota       QuotaConfig       `yaml:"quota" mapstructure:"quota"`
	Batching    BatchingConfig    `yaml:"batching" mapstructure:"batching"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" mapstructure:"rate_limit"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Metrics     MetricsConfig     `yaml:"metrics" mapstructure:"metrics"`
}

// ExtractionConfig controls candidate finding and classification.
type ExtractionConfig struct {
	WindowChars     int    `yaml:"window_chars" mapstructure:"window_chars"`           // Radius around each drug mention
	MinSnippetChars int    `yaml:"min_snippet_chars" mapstructure:"min_snippet_chars"` // Shorter windows are discarded
	RoleRadius      int    `yaml:"role_radius" mapstructure:"role_radius"`             // Therapy keyword radius around the drug
	LimitPerDrug    int    `yaml:"limit_per_drug" mapstructure:"limit_per_drug"`       // 0 = unlimited
	DrugTermsFile   string `yaml:"drug_terms_file,omitempty" mapstructure:"drug_terms_file"`
	DrugGroupsFile  string `yaml:"drug_groups_file,omitempty" mapstructure:"drug_groups_file"`
	RulesFile       string `yaml:"rules_file,omitempty" mapstructure:"rules_file"`
}

// ScoringConfig holds the additive snippet score weights.
type ScoringConfig struct {
	ArticleWeight    float64 `yaml:"article_weight" mapstructure:"article_weight"`
	CitationWeight   float64 `yaml:"citation_weight" mapstructure:"citation_weight"`
	CitationCap      float64 `yaml:"citation_cap" mapstructure:"citation_cap"`
	RiskBonus        float64 `yaml:"risk_bonus" mapstructure:"risk_bonus"`
	SafetyBonus      float64 `yaml:"safety_bonus" mapstructure:"safety_bonus"`
	CueWeight        float64 `yaml:"cue_weight" mapstructure:"cue_weight"`
	ConditionBonus   float64 `yaml:"condition_bonus" mapstructure:"condition_bonus"`
	ConditionPenalty float64 `yaml:"condition_penalty" mapstructure:"condition_penalty"`

	StudyTypeWeights map[string]float64 `yaml:"study_type_weights" mapstructure:"study_type_weights"`

	ReferenceYear   int     `yaml:"reference_year" mapstructure:"reference_year"` // 0 = year of the run
	RecencyWeight   float64 `yaml:"recency_weight" mapstructure:"recency_weight"`
	HalfLifeYears   float64 `yaml:"half_life_years" mapstructure:"half_life_years"`
	StaleAfterYears int     `yaml:"stale_after_years" mapstructure:"stale_after_years"`
	StalePenalty    float64 `yaml:"stale_penalty" mapstructure:"stale_penalty"`

	MinCohort     int     `yaml:"min_cohort" mapstructure:"min_cohort"`
	CohortPenalty float64 `yaml:"cohort_penalty" mapstructure:"cohort_penalty"`
	CohortWeight  float64 `yaml:"cohort_weight" mapstructure:"cohort_weight"`
	CohortCap     float64 `yaml:"cohort_cap" mapstructure:"cohort_cap"`
}

// QuotaConfig controls how many snippets each article keeps.
type QuotaConfig struct {
	BaseQuota             int     `yaml:"base_quota" mapstructure:"base_quota"`
	MaxQuota              int     `yaml:"max_quota" mapstructure:"max_quota"`
	CitationThreshold     int     `yaml:"citation_threshold" mapstructure:"citation_threshold"`
	HighCitationThreshold int     `yaml:"high_citation_threshold" mapstructure:"high_citation_threshold"`
	ScoreThreshold        float64 `yaml:"score_threshold" mapstructure:"score_threshold"`

	// Slots added when the matching threshold is met
	CitationIncrement     int `yaml:"citation_increment" mapstructure:"citation_increment"`
	HighCitationIncrement int `yaml:"high_citation_increment" mapstructure:"high_citation_increment"`
	ScoreIncrement        int `yaml:"score_increment" mapstructure:"score_increment"`
}

// BatchingConfig bounds each model request.
type BatchingConfig struct {
	MaxPromptTokens   int     `yaml:"max_prompt_tokens" mapstructure:"max_prompt_tokens"`
	MaxSnippets       int     `yaml:"max_snippets_per_batch" mapstructure:"max_snippets_per_batch"`
	OverheadTokens    int     `yaml:"overhead_tokens" mapstructure:"overhead_tokens"`
	SnippetMetaTokens int     `yaml:"snippet_meta_tokens" mapstructure:"snippet_meta_tokens"`
	TokenMultiplier   float64 `yaml:"token_multiplier" mapstructure:"token_multiplier"`
	SystemPrompt      string  `yaml:"system_prompt,omitempty" mapstructure:"system_prompt"`
}

// LLMConfig configures the model provider.
type LLMConfig struct {
	Provider   string        `yaml:"provider" mapstructure:"provider"` // "openai", "anthropic", "ollama"
	Model      string        `yaml:"model" mapstructure:"model"`
	APIKey     string        `yaml:"-" mapstructure:"api_key"` // Never written to disk
	BaseURL    string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens  int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"`
	Backoff    time.Duration `yaml:"backoff" mapstructure:"backoff"`
	HTTPProxy  string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RateLimitConfig throttles model calls per provider.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// CacheConfig controls the model response cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// StoreConfig selects the claim set persistence backend.
type StoreConfig struct {
	Driver          string        `yaml:"driver" mapstructure:"driver"` // "memory" or "postgres"
	DSN             string        `yaml:"-" mapstructure:"dsn"`
	MaxConns        int32         `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns        int32         `yaml:"min_conns" mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" mapstructure:"max_conn_lifetime"`
}

// ConcurrencyConfig bounds parallel work.
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"` // Per-article extraction workers
	Batches int `yaml:"batches" mapstructure:"batches"` // Concurrent model calls
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// MetricsConfig configures Prometheus exposition.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr    string `yaml:"addr" mapstructure:"addr"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			WindowChars:     600,
			MinSnippetChars: 60,
			RoleRadius:      80,
		},
		Scoring: DefaultScoringConfig(),
		Quota:   DefaultQuotaConfig(),
		Batching: BatchingConfig{
			MaxPromptTokens:   1800,
			MaxSnippets:       8,
			OverheadTokens:    220,
			SnippetMetaTokens: 18,
			TokenMultiplier:   1.15,
		},
		LLM: LLMConfig{
			Provider:   "openai",
			Model:      "gpt-5-mini",
			Timeout:    60 * time.Second,
			MaxTokens:  4000,
			MaxRetries: 3,
			Backoff:    2 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             2,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".claimsift-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Store: StoreConfig{
			Driver:          "memory",
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
			Batches: 2,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Addr: ":9108",
		},
	}
}

// DefaultScoringConfig returns the reference scoring weights.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		ArticleWeight:    1.0,
		CitationWeight:   1.0 / 40.0,
		CitationCap:      2.0,
		RiskBonus:        0.5,
		SafetyBonus:      0.3,
		CueWeight:        0.1,
		ConditionBonus:   0.4,
		ConditionPenalty: -0.2,
		StudyTypeWeights: map[string]float64{
			"randomized_controlled_trial": 0.6,
			"systematic_review":           0.45,
			"meta_analysis":               0.45,
			"guideline":                   0.3,
			"observational":               0.15,
			"case_report":                 -0.2,
			"letter":                      -0.2,
		},
		RecencyWeight:   0.5,
		HalfLifeYears:   10,
		StaleAfterYears: 15,
		StalePenalty:    -0.3,
		MinCohort:       20,
		CohortPenalty:   -0.2,
		CohortWeight:    0.2,
		CohortCap:       0.4,
	}
}

// DefaultQuotaConfig returns the reference quota thresholds.
func DefaultQuotaConfig() QuotaConfig {
	return QuotaConfig{
		BaseQuota:             3,
		MaxQuota:              8,
		CitationThreshold:     10,
		HighCitationThreshold: 30,
		ScoreThreshold:        4.0,
		CitationIncrement:     1,
		HighCitationIncrement: 1,
		ScoreIncrement:        1,
	}
}
