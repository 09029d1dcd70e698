package conf

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHistoryLimit      = 100
	DefaultFooter            = "Quote"
	DefaultWebhookName       = "quote"
	DefaultStorePath         = "persistence.json"
	DefaultFeedbackThreshold = 5
)

type Config struct {
	Discord  Discord  `yaml:"discord"`
	Quote    Quote    `yaml:"quote"`
	Activity Activity `yaml:"activity"`
	Log      Log      `yaml:"log"`
}

type Discord struct {
	Token       string `yaml:"token"`
	WebhookName string `yaml:"webhookName"`
	Status      string `yaml:"status"`
}

type Quote struct {
	HistoryLimit int    `yaml:"historyLimit"`
	Footer       string `yaml:"footer"`
}

type Activity struct {
	Enabled         bool   `yaml:"enabled"`
	StorePath       string `yaml:"storePath"`
	Threshold       int    `yaml:"threshold"`
	FeedbackMessage string `yaml:"feedbackMessage"`
}

type Log struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func Default() Config {
	return Config{
		Discord: Discord{WebhookName: DefaultWebhookName, Status: "/help"},
		Quote:   Quote{HistoryLimit: DefaultHistoryLimit, Footer: DefaultFooter},
		Activity: Activity{
			Enabled:   true,
			StorePath: DefaultStorePath,
			Threshold: DefaultFeedbackThreshold,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	c := Default()
	if len(path) != 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open configuration file")
		}
		if err = yaml.Unmarshal(data, &c); err != nil {
			return nil, errors.Wrap(err, "failed to parse configuration file")
		}
	}
	c.applyEnvOverrides()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DISCORD_TOKEN"); len(v) != 0 {
		c.Discord.Token = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK_NAME"); len(v) != 0 {
		c.Discord.WebhookName = v
	}
}

func (c *Config) applyDefaults() {
	if len(c.Discord.WebhookName) == 0 {
		c.Discord.WebhookName = DefaultWebhookName
	}
	if c.Quote.HistoryLimit <= 0 {
		c.Quote.HistoryLimit = DefaultHistoryLimit
	}
	if len(c.Quote.Footer) == 0 {
		c.Quote.Footer = DefaultFooter
	}
	if len(c.Activity.StorePath) == 0 {
		c.Activity.StorePath = DefaultStorePath
	}
	if c.Activity.Threshold <= 0 {
		c.Activity.Threshold = DefaultFeedbackThreshold
	}
}

func (c Config) Validate() error {
	if len(c.Discord.Token) == 0 {
		return errors.New("needs to configure discord token")
	}
	if c.Quote.HistoryLimit > 100 {
		return errors.Errorf("quote.historyLimit %d exceeds the 100 messages a history request can return", c.Quote.HistoryLimit)
	}
	return nil
}

// String omits the token.
func (c Config) String() string {
	c.Discord.Token = "***"
	data, _ := yaml.Marshal(c)
	return string(data)
}
