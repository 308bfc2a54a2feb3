package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is tried when no config file is named. If it does not exist the
// embedded default is used.
const DefaultPath = "config.yaml"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

//go:embed default.yaml
var defaultYAML []byte

// KnownSources is the set of source names accepted in `sources`.
var KnownSources = []string{"weather", "gmail", "outlook", "canvas", "reminders"}

type Config struct {
	Timezone    string           `yaml:"timezone" validate:"required"`
	HTTPTimeout time.Duration    `yaml:"http_timeout" validate:"gt=0"`
	Sources     List             `yaml:"sources" validate:"required,unique,dive,oneof=weather gmail outlook canvas reminders"`
	Location    LocationConfig   `yaml:"location"`
	Weather     WeatherConfig    `yaml:"weather"`
	Gmail       GmailConfig      `yaml:"gmail"`
	Outlook     OutlookConfig    `yaml:"outlook"`
	Canvas      CanvasConfig     `yaml:"canvas"`
	Reminders   RemindersConfig  `yaml:"reminders"`
	Summarizer  SummarizerConfig `yaml:"summarizer"`
	Publisher   PublisherConfig  `yaml:"publisher"`

	loc *time.Location
}

// List accepts either a YAML sequence or a comma-separated string, so list
// settings can come from a single environment variable.
type List []string

func (l *List) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*l = strings.Split(n.Value, ",")
		return nil
	}
	var items []string
	if err := n.Decode(&items); err != nil {
		return err
	}
	*l = items
	return nil
}

type LocationConfig struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat" validate:"min=-90,max=90"`
	Lon  float64 `yaml:"lon" validate:"min=-180,max=180"`
}

type WeatherConfig struct {
	APIKey string `yaml:"api_key"`
}

type GmailConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
}

type OutlookConfig struct {
	Host     string `yaml:"host" validate:"required,hostname_rfc1123"`
	Port     int    `yaml:"port" validate:"min=1,max=65535"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type CanvasConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`
	Token   string `yaml:"token"`
}

type RemindersConfig struct {
	URL      string `yaml:"url" validate:"required,url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type SummarizerConfig struct {
	Type         string        `yaml:"type" validate:"oneof=anthropic openai"`
	Model        string        `yaml:"model" validate:"required"`
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url" validate:"omitempty,url"`
	MaxTokens    int           `yaml:"max_tokens" validate:"gt=0"`
	SystemPrompt string        `yaml:"system_prompt"`
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
}

type PublisherConfig struct {
	Type     string         `yaml:"type" validate:"oneof=telegram discord email stdout"`
	Telegram TelegramConfig `yaml:"telegram"`
	Discord  DiscordConfig  `yaml:"discord"`
	Email    EmailConfig    `yaml:"email"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	BaseURL  string `yaml:"base_url" validate:"omitempty,url"`
}

type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url" validate:"omitempty,url"`
}

type EmailConfig struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port" validate:"min=0,max=65535"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       List   `yaml:"to"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var envVarRegex = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} with the variable's value and ${VAR:-default}
// with the default when VAR is unset or empty. Unset variables without a
// default expand to the empty string.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		m := envVarRegex.FindStringSubmatch(match)
		if val := os.Getenv(m[1]); val != "" {
			return val
		}
		return m[2]
	})
}

const quotedStyles = yaml.SingleQuotedStyle | yaml.DoubleQuotedStyle | yaml.LiteralStyle | yaml.FoldedStyle | yaml.TaggedStyle

// expandNode substitutes environment variables in the scalars of a parsed
// document. Values are never re-read as YAML, so quotes and backslashes in a
// secret survive unchanged.
func expandNode(n *yaml.Node) {
	if n.Kind != yaml.ScalarNode {
		for _, c := range n.Content {
			expandNode(c)
		}
		return
	}
	if !envVarRegex.MatchString(n.Value) {
		return
	}
	n.Value = expandEnvVars(n.Value)
	if n.Style&quotedStyles != 0 {
		return
	}
	// Plain scalars re-resolve so numbers decode into numeric fields.
	switch n.Value {
	case "~", "null", "Null", "NULL":
		n.Tag = "!!str"
	default:
		n.Tag = ""
	}
}

// LoadEnv reads a dotenv file into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: failed to load %s: %w", path, err)
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Timezone == "" {
		cfg.Timezone = "America/New_York"
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = []string{"weather", "gmail", "canvas"}
	}
	if cfg.Location.Name == "" {
		cfg.Location.Name = "Blacksburg, VA"
	}
	if cfg.Location.Lat == 0 && cfg.Location.Lon == 0 {
		cfg.Location.Lat, cfg.Location.Lon = 37.2296, -80.4139
	}
	if cfg.Outlook.Host == "" {
		cfg.Outlook.Host = "outlook.office365.com"
	}
	if cfg.Outlook.Port == 0 {
		cfg.Outlook.Port = 993
	}
	if cfg.Canvas.BaseURL == "" {
		cfg.Canvas.BaseURL = "https://canvas.vt.edu"
	}
	if cfg.Reminders.URL == "" {
		cfg.Reminders.URL = "https://caldav.icloud.com"
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "anthropic"
	}
	if cfg.Summarizer.Model == "" && cfg.Summarizer.Type == "anthropic" {
		cfg.Summarizer.Model = "claude-sonnet-4-5-20250929"
	}
	if cfg.Summarizer.MaxTokens == 0 {
		cfg.Summarizer.MaxTokens = 1024
	}
	if cfg.Summarizer.Timeout == 0 {
		cfg.Summarizer.Timeout = 2 * time.Minute
	}
	if cfg.Publisher.Type == "" {
		cfg.Publisher.Type = "telegram"
	}
	if cfg.Publisher.Email.SMTPPort == 0 {
		cfg.Publisher.Email.SMTPPort = 587
	}
}

func normalizeSources(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalid, c.Timezone, err)
	}
	c.loc = loc
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s: unsupported value %q (supported: %s)", field, fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "unique":
		return field + " lists a source twice"
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s: must satisfy %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s: must be a valid %s", field, fe.Tag())
}

// Parse decodes data, expands environment variables in its values, applies
// defaults and validates.
func Parse(data []byte) (*Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("config: failed to parse: %w", err)
	}

	var cfg Config
	if root.Kind != 0 {
		expandNode(&root)
		if err := root.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse: %w", err)
		}
	}

	cfg.Sources = normalizeSources(cfg.Sources)
	cfg.Publisher.Email.To = normalizeList(cfg.Publisher.Email.To)
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads the config file at path. An empty path tries DefaultPath and falls
// back to the embedded default configuration.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, fs.ErrNotExist):
		data = defaultYAML
	default:
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	return Parse(data)
}

// SetSources replaces the enabled sources, e.g. from a command-line override.
func (c *Config) SetSources(sources []string) error {
	prev := c.Sources
	c.Sources = normalizeSources(sources)
	if len(c.Sources) == 0 {
		c.Sources = prev
		return nil
	}
	if err := c.validate(); err != nil {
		c.Sources = prev
		return err
	}
	return nil
}

// Zone is the loaded display time zone.
func (c *Config) Zone() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

// Configured reports whether the credentials a source needs are present.
// Unconfigured sources still run and report their own error.
func (c *Config) Configured(source string) bool {
	switch source {
	case "weather":
		return c.Weather.APIKey != ""
	case "gmail":
		return c.Gmail.ClientID != "" && c.Gmail.ClientSecret != "" && c.Gmail.RefreshToken != ""
	case "outlook":
		return c.Outlook.Username != "" && c.Outlook.Password != ""
	case "canvas":
		return c.Canvas.Token != ""
	case "reminders":
		return c.Reminders.Username != "" && c.Reminders.Password != ""
	}
	return false
}

func normalizeList(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
