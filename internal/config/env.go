package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DefaultModel             = "anthropic/claude-opus-4-5"
	DefaultOpenRouterAPIBase = "https://openrouter.ai/api/v1"
	DefaultPort              = 8080
	DefaultWebUICommand      = "uvicorn main:app"
)

// Flag is a channel enable switch. Unlike strconv.ParseBool it also accepts
// yes/no and on/off, which is what people tend to put in compose files.
type Flag bool

func (f *Flag) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "1", "t", "true", "y", "yes", "on":
		*f = true
	case "", "0", "f", "false", "n", "no", "off":
		*f = false
	default:
		return fmt.Errorf("invalid boolean %q", string(text))
	}
	return nil
}

// Env is the set of environment variables the bootstrap reads. It is always
// built from an explicit map so nothing below the CLI touches os.Getenv.
type Env struct {
	OpenRouterAPIKey  string `env:"OPENROUTER_API_KEY"`
	OpenRouterAPIBase string `env:"OPENROUTER_API_BASE" envDefault:"https://openrouter.ai/api/v1"`
	OpenAIAPIKey      string `env:"OPENAI_API_KEY"`
	OpenAIAPIBase     string `env:"OPENAI_API_BASE"`
	AnthropicAPIKey   string `env:"ANTHROPIC_API_KEY"`
	AnthropicAPIBase  string `env:"ANTHROPIC_API_BASE"`

	DefaultModel string `env:"DEFAULT_MODEL" envDefault:"anthropic/claude-opus-4-5"`

	TelegramEnabled Flag   `env:"TELEGRAM_ENABLED"`
	TelegramToken   string `env:"TELEGRAM_TOKEN"`
	DiscordEnabled  Flag   `env:"DISCORD_ENABLED"`
	DiscordToken    string `env:"DISCORD_TOKEN"`
	SlackEnabled    Flag   `env:"SLACK_ENABLED"`
	SlackBotToken   string `env:"SLACK_BOT_TOKEN"`
	SlackAppToken   string `env:"SLACK_APP_TOKEN"`

	Port         int    `env:"PORT" envDefault:"8080"`
	WebUICommand string `env:"WEBUI_COMMAND" envDefault:"uvicorn main:app"`
	WebUIDir     string `env:"WEBUI_DIR"`
}

// LoadEnv parses vars into an Env. Empty values are treated as unset so that
// DEFAULT_MODEL= still falls back to DefaultModel.
func LoadEnv(vars map[string]string) (Env, error) {
	set := make(map[string]string, len(vars))
	for k, v := range vars {
		if v != "" {
			set[k] = v
		}
	}
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Environment: set}); err != nil {
		return Env{}, fmt.Errorf("parsing environment: %w", err)
	}
	return e, nil
}

// Environ returns the process environment overlaid on the dotenv file at
// path. Process variables win. A missing dotenv file is not an error.
func Environ(dotenvPath string) (map[string]string, error) {
	vars := map[string]string{}
	if dotenvPath != "" {
		fileVars, err := godotenv.Read(dotenvPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", dotenvPath, err)
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return vars, nil
}
