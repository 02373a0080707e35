package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigFile   = "config.yaml"
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 15 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	defaultTemplatesDir = "templates"
	defaultPublicDir    = "public"
	defaultContentDir   = "content"
	defaultPage         = 1
	defaultLimit        = 20
	defaultFilter       = "all"
	defaultSortBy       = "updated_at"
	defaultSortOrder    = "desc"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	TemplateAPI TemplateAPIConfig
	Webhook     WebhookConfig
	Session     SessionConfig
	Content     ContentConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	DevMode      bool
	TemplatesDir string
	PublicDir    string
}

// TemplateAPIConfig locates the remote template catalog and its credentials.
type TemplateAPIConfig struct {
	URL              string
	APIKey           string
	BearerToken      string
	RequestingUserID string
	Page             int
	Limit            int
	Filter           string
	SortBy           string
	SortOrder        string
}

// WebhookConfig locates the request submission webhook.
type WebhookConfig struct {
	URL string
}

// SessionConfig controls session cookie signing.
type SessionConfig struct {
	SigningKey    string
	SecureCookies bool
}

// ContentConfig locates local markdown content.
type ContentConfig struct {
	Dir string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	configFile   string
	envMap       map[string]string
	useSystemEnv bool
}

// WithConfigFile overrides the YAML file path consulted during loading.
func WithConfigFile(path string) Option {
	return func(o *loaderOptions) {
		o.configFile = path
	}
}

// WithEnvMap supplies environment values directly, bypassing the process env.
// Primarily for tests.
func WithEnvMap(env map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = env
		o.useSystemEnv = false
	}
}

type fileConfig struct {
	Server struct {
		Port         string `yaml:"port"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
		IdleTimeout  string `yaml:"idle_timeout"`
		TemplatesDir string `yaml:"templates_dir"`
		PublicDir    string `yaml:"public_dir"`
	} `yaml:"server"`
	TemplateAPI struct {
		URL              string `yaml:"url"`
		APIKey           string `yaml:"api_key"`
		BearerToken      string `yaml:"bearer_token"`
		RequestingUserID string `yaml:"requesting_user_id"`
		Page             int    `yaml:"page"`
		Limit            int    `yaml:"limit"`
		Filter           string `yaml:"filter"`
		SortBy           string `yaml:"sort_by"`
		SortOrder        string `yaml:"sort_order"`
	} `yaml:"template_api"`
	Webhook struct {
		URL string `yaml:"url"`
	} `yaml:"webhook"`
	Session struct {
		SigningKey string `yaml:"signing_key"`
	} `yaml:"session"`
	Content struct {
		Dir string `yaml:"dir"`
	} `yaml:"content"`
}

// Load resolves configuration from an optional YAML file overlaid with
// STOREFRAME_WEB_* environment variables. A missing config file is not an
// error; missing required fields are reported via *ValidationError.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		configFile:   defaultConfigFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	getenv := func(key string) string {
		if options.useSystemEnv {
			return os.Getenv(key)
		}
		return options.envMap[key]
	}

	var file fileConfig
	if path := strings.TrimSpace(getenv("STOREFRAME_WEB_CONFIG")); path != "" {
		options.configFile = path
	}
	if options.configFile != "" {
		raw, err := os.ReadFile(options.configFile)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &file); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", options.configFile, err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// optional file
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", options.configFile, err)
		}
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         firstNonEmpty(getenv("STOREFRAME_WEB_PORT"), getenv("PORT"), file.Server.Port, defaultPort),
			ReadTimeout:  parseDurationOr(file.Server.ReadTimeout, defaultReadTimeout),
			WriteTimeout: parseDurationOr(file.Server.WriteTimeout, defaultWriteTimeout),
			IdleTimeout:  parseDurationOr(file.Server.IdleTimeout, defaultIdleTimeout),
			DevMode:      getenv("STOREFRAME_WEB_DEV") != "" || getenv("DEV") != "",
			TemplatesDir: firstNonEmpty(file.Server.TemplatesDir, defaultTemplatesDir),
			PublicDir:    firstNonEmpty(file.Server.PublicDir, defaultPublicDir),
		},
		TemplateAPI: TemplateAPIConfig{
			URL:              firstNonEmpty(getenv("STOREFRAME_WEB_TEMPLATE_API_URL"), file.TemplateAPI.URL),
			APIKey:           firstNonEmpty(getenv("STOREFRAME_WEB_TEMPLATE_API_KEY"), file.TemplateAPI.APIKey),
			BearerToken:      firstNonEmpty(getenv("STOREFRAME_WEB_TEMPLATE_BEARER"), file.TemplateAPI.BearerToken),
			RequestingUserID: firstNonEmpty(getenv("STOREFRAME_WEB_REQUESTING_USER_ID"), file.TemplateAPI.RequestingUserID),
			Page:             positiveOr(file.TemplateAPI.Page, defaultPage),
			Limit:            positiveOr(file.TemplateAPI.Limit, defaultLimit),
			Filter:           firstNonEmpty(file.TemplateAPI.Filter, defaultFilter),
			SortBy:           firstNonEmpty(file.TemplateAPI.SortBy, defaultSortBy),
			SortOrder:        firstNonEmpty(file.TemplateAPI.SortOrder, defaultSortOrder),
		},
		Webhook: WebhookConfig{
			URL: firstNonEmpty(getenv("STOREFRAME_WEB_WEBHOOK_URL"), file.Webhook.URL),
		},
		Session: SessionConfig{
			SigningKey:    firstNonEmpty(getenv("STOREFRAME_WEB_SESSION_SIGNING_KEY"), file.Session.SigningKey),
			SecureCookies: strings.EqualFold(strings.TrimSpace(getenv("STOREFRAME_WEB_ENV")), "prod"),
		},
		Content: ContentConfig{
			Dir: firstNonEmpty(getenv("STOREFRAME_WEB_CONTENT_DIR"), file.Content.Dir, defaultContentDir),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var missing []string
	if strings.TrimSpace(c.TemplateAPI.URL) == "" {
		missing = append(missing, "template_api.url")
	}
	if strings.TrimSpace(c.TemplateAPI.APIKey) == "" {
		missing = append(missing, "template_api.api_key")
	}
	if strings.TrimSpace(c.TemplateAPI.BearerToken) == "" {
		missing = append(missing, "template_api.bearer_token")
	}
	if strings.TrimSpace(c.Webhook.URL) == "" {
		missing = append(missing, "webhook.url")
	}
	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func positiveOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
