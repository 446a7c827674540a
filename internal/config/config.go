package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone         = "UTC"
	defaultDeliveryTimezone = "Europe/Belgrade"
	configPathEnv           = "NEWS_DIGEST_CONFIG"
	databaseDSNEnv          = "NEWS_DIGEST_DSN"
	databaseDriverEnv       = "NEWS_DIGEST_DB_DRIVER"
	openAIKeyEnv            = "OPENAI_API_KEY"
	chatGPTModelEnv         = "CHATGPT_MODEL"
	anthropicKeyEnv         = "ANTHROPIC_API_KEY"
	oracleProviderEnv       = "ORACLE_PROVIDER"
	redisURLEnv             = "REDIS_URL"
	digestFeedURLEnv        = "DIGEST_FEED_URL"
	maxItemsEnv             = "MAX_ITEMS"
	emailEnv                = "EMAIL"
	smtpPassEnv             = "SMTP_PASS"
	smtpHostEnv             = "SMTP_HOST"
	smtpPortEnv             = "SMTP_PORT"
	telegramTokenEnv        = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv       = "TELEGRAM_CHAT_ID"
	logLevelEnv             = "LOG_LEVEL"
)

// Oracle providers.
const (
	ProviderNone      = "none"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderML        = "ml"
)

// Delivery record backends.
const (
	BackendFile  = "file"
	BackendSQL   = "sql"
	BackendRedis = "redis"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Sources   []SourceConfig  `yaml:"sources"`
	Collector CollectorConfig `yaml:"collector"`
	Storage   StorageConfig   `yaml:"storage"`
	Digest    DigestConfig    `yaml:"digest"`
	Oracle    OracleConfig    `yaml:"oracle"`
	ChatGPT   ChatGPTConfig   `yaml:"chatgpt"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	ML        MLConfig        `yaml:"ml"`
	Feeds     FeedsConfig     `yaml:"feeds"`
	Dedup     DedupConfig     `yaml:"dedup"`
	Delivery  DeliveryConfig  `yaml:"delivery"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SchedulerConfig defines when the serve loop runs.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	return locationOr(s.location, defaultTimezone)
}

// SourceConfig describes one upstream with its scanner strategy.
type SourceConfig struct {
	Name    string            `yaml:"name"`
	Scanner string            `yaml:"scanner"`
	URLs    []string          `yaml:"urls"`
	Options map[string]string `yaml:"options"`
}

// CollectorConfig bounds how sources are fetched.
type CollectorConfig struct {
	Concurrency       int           `yaml:"concurrency"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Timeout           time.Duration `yaml:"timeout"`
}

// StorageConfig points at the SQL database holding collected items.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// DigestConfig controls the clustering run.
type DigestConfig struct {
	WindowHours int `yaml:"windowHours"`
	MaxItems    int `yaml:"maxItems"`
	MaxRounds   int `yaml:"maxRounds"`
	BodyChars   int `yaml:"bodyChars"`
}

// OracleConfig chooses the clustering backend and prompt details.
type OracleConfig struct {
	Provider     string  `yaml:"provider"`
	Language     string  `yaml:"language"`
	SystemPrompt string  `yaml:"systemPrompt"`
	Temperature  float64 `yaml:"temperature"`

	temperatureSet bool
}

// UnmarshalYAML records whether temperature was given so an explicit zero
// still overrides the default.
func (o *OracleConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain OracleConfig
	if err := node.Decode((*plain)(o)); err != nil {
		return err
	}
	var present struct {
		Temperature *float64 `yaml:"temperature"`
	}
	if err := node.Decode(&present); err != nil {
		return err
	}
	o.temperatureSet = present.Temperature != nil
	return nil
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"apiKey"`
	Timeout  time.Duration `yaml:"timeout"`
}

// AnthropicConfig defines how to contact the Anthropic Messages API.
type AnthropicConfig struct {
	BaseURL   string        `yaml:"baseUrl"`
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"apiKey"`
	MaxTokens int           `yaml:"maxTokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// MLConfig describes a self-hosted clustering service.
type MLConfig struct {
	InferenceURL string `yaml:"inferenceUrl"`
	APIKey       string `yaml:"apiKey"`
}

// FeedsConfig names the published RSS files.
type FeedsConfig struct {
	RawPath     string `yaml:"rawPath"`
	DigestPath  string `yaml:"digestPath"`
	RawTitle    string `yaml:"rawTitle"`
	DigestTitle string `yaml:"digestTitle"`
	RawLink     string `yaml:"rawLink"`
	DigestLink  string `yaml:"digestLink"`
	Language    string `yaml:"language"`
}

// DedupConfig chooses where the delivery record lives.
type DedupConfig struct {
	Backend       string `yaml:"backend"`
	StatePath     string `yaml:"statePath"`
	SentKeysLimit int    `yaml:"sentKeysLimit"`
	RedisURL      string `yaml:"redisUrl"`
	RedisKey      string `yaml:"redisKey"`
}

// DeliveryConfig wires the outbound channels.
type DeliveryConfig struct {
	FeedURL  string         `yaml:"feedUrl"`
	MaxItems int            `yaml:"maxItems"`
	Timezone string         `yaml:"timezone"`
	Email    EmailConfig    `yaml:"email"`
	Telegram TelegramConfig `yaml:"telegram"`
	location *time.Location `yaml:"-"`
}

// Location resolves the delivery timezone used for subjects and timestamps.
func (d DeliveryConfig) Location() *time.Location {
	return locationOr(d.location, defaultDeliveryTimezone)
}

// EmailConfig carries SMTP credentials.
type EmailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// Enabled reports whether enough is configured to send mail.
func (e EmailConfig) Enabled() bool {
	return e.Host != "" && e.From != "" && e.To != ""
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether the bot can post.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Load reads YAML configuration named by NEWS_DIGEST_CONFIG (if set) and
// applies environment overrides.
func Load() Config {
	return LoadFrom(os.Getenv(configPathEnv))
}

// LoadFrom reads YAML configuration from path (if non-empty) and applies
// environment overrides.
func LoadFrom(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezones()

	return cfg
}

// Validate rejects settings no component can work with.
func (c Config) Validate() error {
	var errs []error

	switch c.Oracle.Provider {
	case ProviderNone, ProviderOpenAI, ProviderAnthropic, ProviderML:
	default:
		errs = append(errs, fmt.Errorf("oracle.provider: unknown provider %q", c.Oracle.Provider))
	}

	if c.Oracle.Provider == ProviderML && c.ML.InferenceURL == "" {
		errs = append(errs, errors.New("ml.inferenceUrl: required for the ml provider"))
	}

	switch c.Dedup.Backend {
	case BackendFile, BackendSQL, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("dedup.backend: unknown backend %q", c.Dedup.Backend))
	}
	if c.Dedup.Backend == BackendRedis && c.Dedup.RedisURL == "" {
		errs = append(errs, errors.New("dedup.redisUrl: required for the redis backend"))
	}

	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}

	if c.Digest.MaxRounds < 1 {
		errs = append(errs, errors.New("digest.maxRounds: must be at least 1"))
	}

	return errors.Join(errs...)
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Logging.Level, os.Getenv(logLevelEnv))
	setString(&c.Storage.DSN, os.Getenv(databaseDSNEnv))
	setString(&c.Storage.Driver, os.Getenv(databaseDriverEnv))
	setString(&c.Oracle.Provider, os.Getenv(oracleProviderEnv))
	setString(&c.ChatGPT.APIKey, os.Getenv(openAIKeyEnv))
	setString(&c.ChatGPT.Model, os.Getenv(chatGPTModelEnv))
	setString(&c.Anthropic.APIKey, os.Getenv(anthropicKeyEnv))
	setString(&c.Dedup.RedisURL, os.Getenv(redisURLEnv))
	setString(&c.Delivery.FeedURL, os.Getenv(digestFeedURLEnv))
	setString(&c.Delivery.Telegram.BotToken, os.Getenv(telegramTokenEnv))
	setString(&c.Delivery.Telegram.ChatID, os.Getenv(telegramChatIDEnv))
	setString(&c.Delivery.Email.Host, os.Getenv(smtpHostEnv))
	setString(&c.Delivery.Email.Password, os.Getenv(smtpPassEnv))

	// One mailbox sends to itself.
	if v := os.Getenv(emailEnv); v != "" {
		c.Delivery.Email.From = v
		c.Delivery.Email.To = v
		c.Delivery.Email.Username = v
	}

	if v := os.Getenv(smtpPortEnv); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Delivery.Email.Port = port
		} else {
			log.Printf("config: ignoring %s=%q: %v", smtpPortEnv, v, err)
		}
	}

	if v := os.Getenv(maxItemsEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Delivery.MaxItems = n
		} else {
			log.Printf("config: ignoring %s=%q", maxItemsEnv, v)
		}
	}

	// Without a key the chosen provider cannot answer; fall back to the bucket.
	switch c.Oracle.Provider {
	case ProviderOpenAI:
		if c.ChatGPT.APIKey == "" {
			log.Printf("config: no OpenAI key, clustering disabled")
			c.Oracle.Provider = ProviderNone
		}
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			log.Printf("config: no Anthropic key, clustering disabled")
			c.Oracle.Provider = ProviderNone
		}
	}
}

func (c *Config) bindTimezones() {
	c.Scheduler.location = loadLocation(c.Scheduler.Timezone, defaultTimezone)
	c.Delivery.location = loadLocation(c.Delivery.Timezone, defaultDeliveryTimezone)
}

func loadLocation(tz, fallback string) *time.Location {
	if tz == "" {
		tz = fallback
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, fallback)
		return locationOr(nil, fallback)
	}
	return loc
}

func locationOr(loc *time.Location, fallback string) *time.Location {
	if loc != nil {
		return loc
	}
	if l, err := time.LoadLocation(fallback); err == nil {
		return l
	}
	return time.UTC
}

func mergeConfig(base, override Config) Config {
	setString(&base.Logging.Level, override.Logging.Level)
	setString(&base.Logging.Format, override.Logging.Format)

	setString(&base.Scheduler.CronExpression, override.Scheduler.CronExpression)
	setString(&base.Scheduler.Timezone, override.Scheduler.Timezone)

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	setInt(&base.Collector.Concurrency, override.Collector.Concurrency)
	if override.Collector.RequestsPerSecond > 0 {
		base.Collector.RequestsPerSecond = override.Collector.RequestsPerSecond
	}
	setDuration(&base.Collector.Timeout, override.Collector.Timeout)

	if override.Storage.DSN != "" {
		base.Storage = override.Storage
		if base.Storage.Driver == "" {
			base.Storage.Driver = defaultConfig().Storage.Driver
		}
	}

	setInt(&base.Digest.WindowHours, override.Digest.WindowHours)
	setInt(&base.Digest.MaxItems, override.Digest.MaxItems)
	setInt(&base.Digest.MaxRounds, override.Digest.MaxRounds)
	setInt(&base.Digest.BodyChars, override.Digest.BodyChars)

	setString(&base.Oracle.Provider, strings.ToLower(override.Oracle.Provider))
	setString(&base.Oracle.Language, override.Oracle.Language)
	setString(&base.Oracle.SystemPrompt, override.Oracle.SystemPrompt)
	if override.Oracle.temperatureSet || override.Oracle.Temperature > 0 {
		base.Oracle.Temperature = override.Oracle.Temperature
	}

	setString(&base.ChatGPT.Endpoint, override.ChatGPT.Endpoint)
	setString(&base.ChatGPT.Model, override.ChatGPT.Model)
	setString(&base.ChatGPT.APIKey, override.ChatGPT.APIKey)
	setDuration(&base.ChatGPT.Timeout, override.ChatGPT.Timeout)

	setString(&base.Anthropic.BaseURL, override.Anthropic.BaseURL)
	setString(&base.Anthropic.Model, override.Anthropic.Model)
	setString(&base.Anthropic.APIKey, override.Anthropic.APIKey)
	setInt(&base.Anthropic.MaxTokens, override.Anthropic.MaxTokens)
	setDuration(&base.Anthropic.Timeout, override.Anthropic.Timeout)

	setString(&base.ML.InferenceURL, override.ML.InferenceURL)
	setString(&base.ML.APIKey, override.ML.APIKey)

	setString(&base.Feeds.RawPath, override.Feeds.RawPath)
	setString(&base.Feeds.DigestPath, override.Feeds.DigestPath)
	setString(&base.Feeds.RawTitle, override.Feeds.RawTitle)
	setString(&base.Feeds.DigestTitle, override.Feeds.DigestTitle)
	setString(&base.Feeds.RawLink, override.Feeds.RawLink)
	setString(&base.Feeds.DigestLink, override.Feeds.DigestLink)
	setString(&base.Feeds.Language, override.Feeds.Language)

	setString(&base.Dedup.Backend, strings.ToLower(override.Dedup.Backend))
	setString(&base.Dedup.StatePath, override.Dedup.StatePath)
	setInt(&base.Dedup.SentKeysLimit, override.Dedup.SentKeysLimit)
	setString(&base.Dedup.RedisURL, override.Dedup.RedisURL)
	setString(&base.Dedup.RedisKey, override.Dedup.RedisKey)

	setString(&base.Delivery.FeedURL, override.Delivery.FeedURL)
	setInt(&base.Delivery.MaxItems, override.Delivery.MaxItems)
	setString(&base.Delivery.Timezone, override.Delivery.Timezone)
	setString(&base.Delivery.Email.Host, override.Delivery.Email.Host)
	setInt(&base.Delivery.Email.Port, override.Delivery.Email.Port)
	setString(&base.Delivery.Email.Username, override.Delivery.Email.Username)
	setString(&base.Delivery.Email.Password, override.Delivery.Email.Password)
	setString(&base.Delivery.Email.From, override.Delivery.Email.From)
	setString(&base.Delivery.Email.To, override.Delivery.Email.To)
	setString(&base.Delivery.Telegram.BotToken, override.Delivery.Telegram.BotToken)
	setString(&base.Delivery.Telegram.ChatID, override.Delivery.Telegram.ChatID)

	return base
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

func defaultConfig() Config {
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Scheduler: SchedulerConfig{CronExpression: "0 7,19 * * *", Timezone: defaultDeliveryTimezone},
		Sources: []SourceConfig{
			{
				Name:    "danas",
				Scanner: "rss",
				URLs:    []string{"http://www.danas.rs/rss/rss.asp"},
			},
			{
				Name:    "bbc",
				Scanner: "rss",
				URLs: []string{
					"https://feeds.bbci.co.uk/news/rss.xml",
					"https://feeds.bbci.co.uk/news/world/rss.xml",
					"https://feeds.bbci.co.uk/news/world/asia/rss.xml",
					"https://feeds.bbci.co.uk/news/business/rss.xml",
					"https://feeds.bbci.co.uk/news/technology/rss.xml",
					"https://feeds.bbci.co.uk/news/entertainment_and_arts/rss.xml",
					"https://www.bbc.com/culture/feed.rss",
					"https://feeds.bbci.co.uk/news/world/latin_america/rss.xml",
					"https://feeds.bbci.co.uk/news/world/australia/rss.xml",
					"http://newsrss.bbc.co.uk/rss/newsonline_uk_edition/uk_politics/rss.xml",
					"https://feeds.bbci.co.uk/news/world/middle_east/rss.xml",
					"https://feeds.bbci.co.uk/news/world/africa/rss.xml",
					"https://feeds.bbci.co.uk/news/world/asia/india/rss.xml",
					"https://feeds.bbci.co.uk/news/world/europe/rss.xml",
					"https://feeds.bbci.co.uk/news/world/asia/china/rss.xml",
				},
			},
		},
		Collector: CollectorConfig{Concurrency: 4, RequestsPerSecond: 2, Timeout: 20 * time.Second},
		Storage:   StorageConfig{Driver: "sqlite", DSN: "data/news.db"},
		Digest:    DigestConfig{WindowHours: 24, MaxItems: 200, MaxRounds: 3, BodyChars: 800},
		Oracle:    OracleConfig{Provider: ProviderOpenAI, Temperature: 0.4},
		ChatGPT: ChatGPTConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
			Timeout:  120 * time.Second,
		},
		Anthropic: AnthropicConfig{Model: "claude-3-5-haiku-20241022", MaxTokens: 8192, Timeout: 120 * time.Second},
		ML:        MLConfig{InferenceURL: ""},
		Feeds: FeedsConfig{
			RawPath:     "news/news.xml",
			DigestPath:  "news/digest.xml",
			RawTitle:    "News digest RAW",
			DigestTitle: "AI news digest",
			RawLink:     "https://example.org/news/news.xml",
			DigestLink:  "https://example.org/news/digest.xml",
			Language:    "sr",
		},
		Dedup: DedupConfig{
			Backend:       BackendFile,
			StatePath:     "state.json",
			SentKeysLimit: 300,
			RedisKey:      "newsdigest:sent_keys",
		},
		Delivery: DeliveryConfig{
			FeedURL:  "news/digest.xml",
			MaxItems: 25,
			Timezone: defaultDeliveryTimezone,
			Email:    EmailConfig{Host: "smtp.gmail.com", Port: 465},
		},
	}
}
