package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/seanblong/interviewrag/internal/ai"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Specification struct {
	Provider      string             `yaml:"provider"`
	APIKey        string             `yaml:"providerApiKey" envconfig:"PROVIDER_API_KEY"`
	ChatModel     string             `yaml:"providerChatModel" envconfig:"PROVIDER_CHAT_MODEL"`
	EmbedModel    string             `yaml:"providerEmbedModel" envconfig:"PROVIDER_EMBEDDING_MODEL"`
	EmbedProvider string             `yaml:"embedProvider" split_words:"true"`
	ProjectID     string             `yaml:"providerProjectID" envconfig:"PROVIDER_PROJECT_ID"`
	Location      string             `yaml:"providerLocation" envconfig:"PROVIDER_LOCATION"`
	Dim           int                `yaml:"providerDim" envconfig:"EMBED_DIM"`
	MaxTokens     int                `yaml:"maxTokens" split_words:"true"`
	Database      string             `yaml:"database" envconfig:"DB_URL"`
	LogLevel      string             `yaml:"logLevel" split_words:"true"`
	Port          int                `yaml:"port" split_words:"true"`
	Index         IndexSpecification `yaml:"index"`
	LLM           LLMSpecification   `yaml:"llm"`
	Batch         BatchSpecification `yaml:"batch"`
	Auth          AuthSpecification  `yaml:"auth"`

	flags *pflag.FlagSet `ignored:"true"`
}

type IndexSpecification struct {
	ChunkSize       int           `yaml:"chunkSize" split_words:"true"`
	ChunkOverlap    int           `yaml:"chunkOverlap" split_words:"true"`
	SessionCapacity int           `yaml:"sessionCapacity" split_words:"true"`
	SessionTTL      time.Duration `yaml:"sessionTTL" envconfig:"SESSION_TTL"`
	EmbedWorkers    int           `yaml:"embedWorkers" split_words:"true"`
	EmbedBatchSize  int           `yaml:"embedBatchSize" split_words:"true"`
	EmbedTimeout    time.Duration `yaml:"embedTimeout" split_words:"true"`
}

type LLMSpecification struct {
	Timeout        time.Duration `yaml:"timeout"`
	RequestTimeout time.Duration `yaml:"requestTimeout" split_words:"true"`
	RateLimit      float64       `yaml:"rateLimit" split_words:"true"`
	RateBurst      int           `yaml:"rateBurst" split_words:"true"`
	MaxRetries     int           `yaml:"maxRetries" split_words:"true"`
}

type BatchSpecification struct {
	ResumeDir   string `yaml:"resumeDir" split_words:"true"`
	OutputDir   string `yaml:"outputDir" split_words:"true"`
	Role        string `yaml:"role"`
	Workers     int    `yaml:"workers"`
	CountRole   int    `yaml:"countRole" split_words:"true"`
	CountResume int    `yaml:"countResume" split_words:"true"`
	CountHR     int    `yaml:"countHR" envconfig:"COUNT_HR"`
}

type AuthSpecification struct {
	Enabled   bool          `yaml:"enabled"`
	JwtSecret string        `yaml:"jwtSecret" split_words:"true"`
	TokenTTL  time.Duration `yaml:"tokenTTL" envconfig:"TOKEN_TTL"`
}

const envPrefix = "INTERVIEWRAG"

func (s *Specification) Usage() {
	fmt.Fprint(os.Stderr, s.flags.FlagUsages())
}

// AIConfig maps the provider settings onto an ai.ClientConfig.
func (s *Specification) AIConfig() *ai.ClientConfig {
	return &ai.ClientConfig{
		APIKey:        s.APIKey,
		ChatModel:     s.ChatModel,
		EmbedModel:    s.EmbedModel,
		Dim:           s.Dim,
		MaxTokens:     s.MaxTokens,
		ProjectID:     s.ProjectID,
		Location:      s.Location,
		Provider:      ai.Provider(strings.ToLower(s.Provider)),
		EmbedProvider: ai.Provider(strings.ToLower(s.EmbedProvider)),
	}
}

// Limits returns the upstream rate and retry policy.
func (s *Specification) Limits() ai.Limits {
	return ai.Limits{
		RatePerSecond: s.LLM.RateLimit,
		Burst:         s.LLM.RateBurst,
		MaxRetries:    s.LLM.MaxRetries,
	}
}

// Load => defaults < YAML < .env + env < flags.
// configPath may be ""; if so we auto-discover.
func Load(configPath string, fs *pflag.FlagSet) (Specification, error) {
	var cfg Specification

	// set defaults (lowest precedence)
	setDefaults(&cfg)
	bindFlags(fs, &cfg)

	// config file
	path := configPath
	if path == "" {
		if v := os.Getenv(envPrefix + "_CONFIG"); v != "" {
			path = v
		} else {
			for _, cand := range []string{
				"config/interviewrag.yaml",
				"config/config.yaml",
				"./interviewrag.yaml",
				"./config.yaml",
			} {
				if fileExists(cand) {
					path = cand
					break
				}
			}
		}
	}

	if path != "" {
		if !fileExists(path) {
			return Specification{}, fmt.Errorf("config file not found: %s", path)
		}
		if err := loadYAML(path, &cfg); err != nil {
			return Specification{}, fmt.Errorf("load yaml %s: %w", path, err)
		}
	}

	// .env never overrides variables already set in the process
	if err := loadDotEnv(os.Getenv(envPrefix + "_ENV_FILE")); err != nil {
		return Specification{}, fmt.Errorf("load env file: %w", err)
	}

	// env overrides config file
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Specification{}, fmt.Errorf("env override: %w", err)
	}
	applyGeminiFallbacks(&cfg)

	// flags override everything
	if err := fs.Parse(os.Args[1:]); err != nil {
		return Specification{}, err
	}
	applyChangedFlags(fs, &cfg)

	// Minimal sanity
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Auth.Enabled && strings.TrimSpace(cfg.Auth.JwtSecret) == "" {
		return Specification{}, fmt.Errorf("%s_AUTH_JWT_SECRET is required when auth is enabled", envPrefix)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Specification{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return cfg, nil
}

// ---------- helpers ----------

func loadYAML(path string, into any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, into)
}

// loadDotEnv reads path, or ./.env when path is empty. A missing default
// file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		if !fileExists(".env") {
			return nil
		}
		path = ".env"
	}
	return godotenv.Load(path)
}

// applyGeminiFallbacks honors the conventional GEMINI_* variables when the
// prefixed ones are unset.
func applyGeminiFallbacks(c *Specification) {
	p := strings.ToLower(c.Provider)
	if p != string(ai.ProviderGemini) && p != string(ai.ProviderVertexAI) {
		return
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.ChatModel == "" {
		c.ChatModel = os.Getenv("GEMINI_MODEL")
	}
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

func bindFlags(fs *pflag.FlagSet, c *Specification) {
	fs.String("config", "", "Path to config file")

	// If --config is provided on the command line, capture it now so
	// config discovery (which runs before flags.Parse) can use it.
	for i, a := range os.Args {
		if a == "--config" {
			if i+1 < len(os.Args) && !strings.HasPrefix(os.Args[i+1], "-") {
				_ = os.Setenv(envPrefix+"_CONFIG", os.Args[i+1])
			}
		} else if strings.HasPrefix(a, "--config=") {
			parts := strings.SplitN(a, "=", 2)
			if len(parts) == 2 {
				_ = os.Setenv(envPrefix+"_CONFIG", parts[1])
			}
		}
	}

	fs.String("provider", c.Provider, "Generation provider (gemini|vertexai|openai|anthropic|stub)")
	fs.String("provider-api-key", c.APIKey, "Provider API key")
	fs.String("provider-chat-model", c.ChatModel, "Provider chat model")
	fs.String("provider-embedding-model", c.EmbedModel, "Provider embedding model")
	fs.String("embed-provider", c.EmbedProvider, "Embedding provider (local|gemini|vertexai|openai)")
	fs.String("provider-project-id", c.ProjectID, "Provider project ID")
	fs.String("provider-location", c.Location, "Provider location/region")

	fs.Int("embed-dim", c.Dim, "Embedding dimensionality")
	fs.Int("max-tokens", c.MaxTokens, "Maximum generated tokens per call (0 = provider default)")

	fs.String("db-url", c.Database, "Optional evaluation archive database URL (DSN)")

	fs.String("log-level", c.LogLevel, "Log level (debug|info|warn|error)")
	fs.Int("port", c.Port, "API server port")

	fs.Int("chunk-size", c.Index.ChunkSize, "Chunk size in characters")
	fs.Int("chunk-overlap", c.Index.ChunkOverlap, "Chunk overlap in characters")
	fs.Int("session-capacity", c.Index.SessionCapacity, "Maximum live session indexes")
	fs.Duration("session-ttl", c.Index.SessionTTL, "Idle lifetime of a session index")
	fs.Int("embed-workers", c.Index.EmbedWorkers, "Concurrent embedding batches")
	fs.Int("embed-batch-size", c.Index.EmbedBatchSize, "Texts per embedding call")
	fs.Duration("embed-timeout", c.Index.EmbedTimeout, "Timeout per embedding batch")

	fs.Duration("llm-timeout", c.LLM.Timeout, "Timeout per generation call")
	fs.Duration("request-timeout", c.LLM.RequestTimeout, "Timeout per API request")
	fs.Float64("rate-limit", c.LLM.RateLimit, "Upstream calls per second (0 = unlimited)")
	fs.Int("rate-burst", c.LLM.RateBurst, "Upstream burst size")
	fs.Int("max-retries", c.LLM.MaxRetries, "Retries for 429/5xx upstream failures")

	fs.String("resume-dir", c.Batch.ResumeDir, "Directory of resumes for batch runs")
	fs.String("output-dir", c.Batch.OutputDir, "Directory for generated question sets")
	fs.String("role", c.Batch.Role, "Target role for batch runs")
	fs.Int("batch-workers", c.Batch.Workers, "Concurrent resumes in batch runs")
	fs.Int("count-role", c.Batch.CountRole, "Role questions per resume")
	fs.Int("count-resume", c.Batch.CountResume, "Resume questions per resume")
	fs.Int("count-hr", c.Batch.CountHR, "HR questions per resume")

	fs.Bool("auth-enabled", c.Auth.Enabled, "Require session tokens on session endpoints")
	fs.String("auth-jwt-secret", c.Auth.JwtSecret, "JWT secret for signing tokens")
	fs.Duration("auth-token-ttl", c.Auth.TokenTTL, "Session token lifetime")

	// Used later for usage/help
	// create a shallow copy of fs (so Usage can be called safely without mutating caller)
	copied := pflag.NewFlagSet("temp", pflag.ContinueOnError)
	*copied = *fs
	c.flags = copied
}

func applyChangedFlags(fs *pflag.FlagSet, c *Specification) {
	setStr := func(name string, dst *string) {
		if fs.Changed(name) {
			v, _ := fs.GetString(name)
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if fs.Changed(name) {
			v, _ := fs.GetInt(name)
			*dst = v
		}
	}
	setBool := func(name string, dst *bool) {
		if fs.Changed(name) {
			v, _ := fs.GetBool(name)
			*dst = v
		}
	}
	setDur := func(name string, dst *time.Duration) {
		if fs.Changed(name) {
			v, _ := fs.GetDuration(name)
			*dst = v
		}
	}
	setFloat := func(name string, dst *float64) {
		if fs.Changed(name) {
			v, _ := fs.GetFloat64(name)
			*dst = v
		}
	}

	// (We ignore --config here; it's for discovery.)
	setStr("provider", &c.Provider)
	setStr("provider-api-key", &c.APIKey)
	setStr("provider-chat-model", &c.ChatModel)
	setStr("provider-embedding-model", &c.EmbedModel)
	setStr("embed-provider", &c.EmbedProvider)
	setStr("provider-project-id", &c.ProjectID)
	setStr("provider-location", &c.Location)

	setInt("embed-dim", &c.Dim)
	setInt("max-tokens", &c.MaxTokens)

	setStr("db-url", &c.Database)

	setStr("log-level", &c.LogLevel)
	setInt("port", &c.Port)

	setInt("chunk-size", &c.Index.ChunkSize)
	setInt("chunk-overlap", &c.Index.ChunkOverlap)
	setInt("session-capacity", &c.Index.SessionCapacity)
	setDur("session-ttl", &c.Index.SessionTTL)
	setInt("embed-workers", &c.Index.EmbedWorkers)
	setInt("embed-batch-size", &c.Index.EmbedBatchSize)
	setDur("embed-timeout", &c.Index.EmbedTimeout)

	setDur("llm-timeout", &c.LLM.Timeout)
	setDur("request-timeout", &c.LLM.RequestTimeout)
	setFloat("rate-limit", &c.LLM.RateLimit)
	setInt("rate-burst", &c.LLM.RateBurst)
	setInt("max-retries", &c.LLM.MaxRetries)

	setStr("resume-dir", &c.Batch.ResumeDir)
	setStr("output-dir", &c.Batch.OutputDir)
	setStr("role", &c.Batch.Role)
	setInt("batch-workers", &c.Batch.Workers)
	setInt("count-role", &c.Batch.CountRole)
	setInt("count-resume", &c.Batch.CountResume)
	setInt("count-hr", &c.Batch.CountHR)

	// Auth flags
	setBool("auth-enabled", &c.Auth.Enabled)
	setStr("auth-jwt-secret", &c.Auth.JwtSecret)
	setDur("auth-token-ttl", &c.Auth.TokenTTL)
}

func setDefaults(c *Specification) {
	c.LogLevel = "info"
	c.Provider = "gemini"
	c.EmbedProvider = "local"
	c.Location = "us-central1"
	c.Port = 8000

	c.Index.ChunkSize = 800
	c.Index.ChunkOverlap = 120
	c.Index.SessionCapacity = 256
	c.Index.SessionTTL = 2 * time.Hour
	c.Index.EmbedWorkers = 4
	c.Index.EmbedBatchSize = 32
	c.Index.EmbedTimeout = 30 * time.Second

	c.LLM.Timeout = 60 * time.Second
	c.LLM.RequestTimeout = 3 * time.Minute
	c.LLM.RateLimit = 0
	c.LLM.RateBurst = 1
	c.LLM.MaxRetries = 3

	c.Batch.ResumeDir = "."
	c.Batch.OutputDir = "out"
	c.Batch.Role = "Full Stack Developer"
	c.Batch.Workers = 2
	c.Batch.CountRole = 7
	c.Batch.CountResume = 8
	c.Batch.CountHR = 5

	c.Auth.Enabled = false
	c.Auth.TokenTTL = 24 * time.Hour
}
