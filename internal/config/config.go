package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"github.com/MimeLyc/subtitle-trans/internal/backend"
	"github.com/MimeLyc/subtitle-trans/pkg/icron"
)

const DefaultConfigFile = "subtrans.toml"

// Config holds all application configuration
// Values are layered: defaults, TOML file, .env, environment, then Options
//
// Environment Variables:
// Translation:
// - SUBTRANS_LANGUAGE: Target language (default: zh-CN)
// - SUBTRANS_MODE: Backend, api or browser (default: browser)
// - SUBTRANS_WORKER: Browser sessions / files translated together (default: 3)
//
// Browser:
// - SUBTRANS_HEADLESS: Run Chrome headless (default: true)
// - SUBTRANS_CHROME_PATH: Chrome executable (optional)
// - SUBTRANS_PROXY: Proxy server for Chrome (optional)
//
// Cloud Translation API:
// - KEY: API key (required in api mode)
// - PROJECT_ID: Project billed for requests (optional)
// - SUBTRANS_API_URL: Endpoint (default: https://translation.googleapis.com)
//
// Files:
// - SUBTRANS_KEYWORDS: Comma separated terms kept untranslated (optional)
// - SUBTRANS_EXT: Subtitle extension scanned in directories (default: .srt)
//
// Schedule and server:
// - SUBTRANS_CRON: Scan schedule (default: 0 */30 * * * *)
// - SUBTRANS_DIRS: Comma separated roots scanned by schedule (optional)
// - SUBTRANS_DATA_DIR: Lock file directory (default: ./data)
// - SUBTRANS_ADDR: HTTP listen address (default: :8080)
//
// Events:
// - SUBTRANS_KAFKA_BROKERS: Comma separated brokers, empty disables Kafka
// - SUBTRANS_KAFKA_TOPIC: Topic (default: subtrans.jobs)
//
// Logging:
// - LOG_LEVEL: debug, info, warn or error (default: info)
// - LOG_FORMAT: console or json (default: console)
// - LOG_FILE: Additional JSON log file (optional)
type Config struct {
	Translate TranslateConfig `toml:"translate" json:"translate"`
	Browser   BrowserConfig   `toml:"browser" json:"browser"`
	API       APIConfig       `toml:"api" json:"api"`
	Files     FilesConfig     `toml:"files" json:"files"`
	Schedule  ScheduleConfig  `toml:"schedule" json:"schedule"`
	Server    ServerConfig    `toml:"server" json:"server"`
	Kafka     KafkaConfig     `toml:"kafka" json:"kafka"`
	Log       LogConfig       `toml:"log" json:"log"`

	// Source is the TOML file the values were read from, if any
	Source string `toml:"-" json:"source,omitempty"`
}

type TranslateConfig struct {
	Language      string `toml:"language" json:"language"`
	Mode          string `toml:"mode" json:"mode"`
	Worker        int    `toml:"worker" json:"worker"`
	RetryAttempts int    `toml:"retry_attempts" json:"retry_attempts"`
	RetryDelayMs  int    `toml:"retry_delay_ms" json:"retry_delay_ms"`
}

// BrowserConfig configures the pooled headless-browser backend
type BrowserConfig struct {
	Headless       bool   `toml:"headless" json:"headless"`
	ChromePath     string `toml:"chrome_path" json:"chrome_path"`
	Proxy          string `toml:"proxy" json:"proxy"`
	PageURL        string `toml:"page_url" json:"page_url"`
	Endpoint       string `toml:"endpoint" json:"endpoint"`
	InputSelector  string `toml:"input_selector" json:"input_selector"`
	MaxUses        int    `toml:"max_uses" json:"max_uses"`
	PollIntervalMs int    `toml:"poll_interval_ms" json:"poll_interval_ms"`
	PollAttempts   int    `toml:"poll_attempts" json:"poll_attempts"`
	InitTimeout    int    `toml:"init_timeout" json:"init_timeout"` // seconds, 0 waits without limit
	StripNewlines  bool   `toml:"strip_newlines" json:"strip_newlines"`
}

// APIConfig configures the Cloud Translation API backend
type APIConfig struct {
	Key       string `toml:"key" json:"-"`
	ProjectID string `toml:"project_id" json:"project_id"`
	URL       string `toml:"url" json:"url"`
	Timeout   int    `toml:"timeout" json:"timeout"`
}

type FilesConfig struct {
	Ext            string `toml:"ext" json:"ext"`
	Keywords       string `toml:"keywords" json:"keywords"`
	Force          bool   `toml:"force" json:"force"`
	Clear          bool   `toml:"clear" json:"clear"`
	DetectLanguage bool   `toml:"detect_language" json:"detect_language"`
	TermMap        bool   `toml:"term_map" json:"term_map"`
}

type ScheduleConfig struct {
	Cron         string   `toml:"cron" json:"cron"`
	Dirs         []string `toml:"dirs" json:"dirs"`
	DataDir      string   `toml:"data_dir" json:"data_dir"`
	QueueWorkers int      `toml:"queue_workers" json:"queue_workers"`
}

type ServerConfig struct {
	Addr        string   `toml:"addr" json:"addr"`
	CORSOrigins []string `toml:"cors_origins" json:"cors_origins"`
}

type KafkaConfig struct {
	Brokers []string `toml:"brokers" json:"brokers"`
	Topic   string   `toml:"topic" json:"topic"`
}

type LogConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
	File   string `toml:"file" json:"file"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Translate: TranslateConfig{
			Language:      "zh-CN",
			Mode:          string(backend.ModeBrowser),
			Worker:        3,
			RetryAttempts: 3,
			RetryDelayMs:  1000,
		},
		Browser: BrowserConfig{
			Headless:       true,
			MaxUses:        200,
			PollIntervalMs: 300,
			PollAttempts:   50,
			StripNewlines:  runtime.GOOS == "darwin",
		},
		API: APIConfig{
			URL:     "https://translation.googleapis.com",
			Timeout: 30,
		},
		Files: FilesConfig{
			Ext:            ".srt",
			DetectLanguage: true,
			TermMap:        true,
		},
		Schedule: ScheduleConfig{
			Cron:         "0 */30 * * * *",
			DataDir:      "./data",
			QueueWorkers: 1,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			CORSOrigins: []string{"*"},
		},
		Kafka: KafkaConfig{
			Topic: "subtrans.jobs",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration. An explicit path must exist; without one
// ./subtrans.toml is read when present.
func Load(path string, opts ...Option) (*Config, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}
	if exists {
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", resolved, err)
		}
		cfg.Source = resolved
	}

	// .env only fills variables that are not already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg.applyEnv()

	for _, opt := range opts {
		opt(cfg)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return path, true, nil
	}

	projectPath, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return "", false, nil
}

func (c *Config) applyEnv() {
	c.Translate.Language = getEnvString("SUBTRANS_LANGUAGE", c.Translate.Language)
	c.Translate.Mode = getEnvString("SUBTRANS_MODE", c.Translate.Mode)
	c.Translate.Worker = getEnvInt("SUBTRANS_WORKER", c.Translate.Worker)

	c.Browser.Headless = getEnvBool("SUBTRANS_HEADLESS", c.Browser.Headless)
	c.Browser.ChromePath = getEnvString("SUBTRANS_CHROME_PATH", c.Browser.ChromePath)
	c.Browser.Proxy = getEnvString("SUBTRANS_PROXY", c.Browser.Proxy)

	c.API.Key = getEnvString("KEY", c.API.Key)
	c.API.ProjectID = getEnvString("PROJECT_ID", c.API.ProjectID)
	c.API.URL = getEnvString("SUBTRANS_API_URL", c.API.URL)

	c.Files.Keywords = getEnvString("SUBTRANS_KEYWORDS", c.Files.Keywords)
	c.Files.Ext = getEnvString("SUBTRANS_EXT", c.Files.Ext)

	c.Schedule.Cron = getEnvString("SUBTRANS_CRON", c.Schedule.Cron)
	c.Schedule.Dirs = getEnvList("SUBTRANS_DIRS", c.Schedule.Dirs)
	c.Schedule.DataDir = getEnvString("SUBTRANS_DATA_DIR", c.Schedule.DataDir)
	c.Server.Addr = getEnvString("SUBTRANS_ADDR", c.Server.Addr)

	c.Kafka.Brokers = getEnvList("SUBTRANS_KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.Topic = getEnvString("SUBTRANS_KAFKA_TOPIC", c.Kafka.Topic)

	c.Log.Level = getEnvString("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvString("LOG_FORMAT", c.Log.Format)
	c.Log.File = getEnvString("LOG_FILE", c.Log.File)
}

func (c *Config) normalize() {
	c.Translate.Language = strings.TrimSpace(c.Translate.Language)
	c.Translate.Mode = strings.ToLower(strings.TrimSpace(c.Translate.Mode))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))

	if ext := strings.TrimSpace(c.Files.Ext); ext != "" && !strings.HasPrefix(ext, ".") {
		c.Files.Ext = "." + ext
	}
}

// Validate checks if all required configuration is properly set
func (c *Config) Validate() error {
	if _, err := backend.ParseMode(c.Translate.Mode); err != nil {
		return fmt.Errorf("mode must be api or browser, got %q", c.Translate.Mode)
	}
	if c.Translate.Worker < 1 {
		return fmt.Errorf("worker must be at least 1")
	}
	if _, err := language.Parse(c.Translate.Language); err != nil {
		return fmt.Errorf("invalid language %q: %w", c.Translate.Language, err)
	}
	if err := icron.Validate(c.Schedule.Cron); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", c.Schedule.Cron, err)
	}
	if c.Translate.Mode == string(backend.ModeAPI) && c.API.Key == "" {
		return fmt.Errorf("KEY is required in api mode")
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log format must be console or json")
	}
	return nil
}

// TargetTag returns the parsed target language
func (c *Config) TargetTag() language.Tag {
	tag, err := language.Parse(c.Translate.Language)
	if err != nil {
		return language.SimplifiedChinese
	}
	return tag
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Translate.RetryDelayMs) * time.Millisecond
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Browser.PollIntervalMs) * time.Millisecond
}

func (c *Config) LockPath() string {
	return filepath.Join(c.Schedule.DataDir, "subtrans.lock")
}

func WithLanguage(lang string) Option {
	return func(c *Config) { c.Translate.Language = lang }
}

func WithMode(mode string) Option {
	return func(c *Config) { c.Translate.Mode = mode }
}

func WithWorker(n int) Option {
	return func(c *Config) { c.Translate.Worker = n }
}

func WithHeadless(headless bool) Option {
	return func(c *Config) { c.Browser.Headless = headless }
}

func WithChromePath(path string) Option {
	return func(c *Config) { c.Browser.ChromePath = path }
}

func WithProxy(proxy string) Option {
	return func(c *Config) { c.Browser.Proxy = proxy }
}

func WithKeywords(keywords string) Option {
	return func(c *Config) { c.Files.Keywords = keywords }
}

func WithExt(ext string) Option {
	return func(c *Config) { c.Files.Ext = ext }
}

func WithForce(force bool) Option {
	return func(c *Config) { c.Files.Force = force }
}

func WithClear(clear bool) Option {
	return func(c *Config) { c.Files.Clear = clear }
}

func WithCron(expr string) Option {
	return func(c *Config) { c.Schedule.Cron = expr }
}

func WithDirs(dirs []string) Option {
	return func(c *Config) { c.Schedule.Dirs = dirs }
}

func WithAddr(addr string) Option {
	return func(c *Config) { c.Server.Addr = addr }
}

func WithLogLevel(level string) Option {
	return func(c *Config) { c.Log.Level = level }
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean value from environment variables with default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvList gets a comma separated list from environment variables with default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var ret []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			ret = append(ret, item)
		}
	}
	return ret
}
