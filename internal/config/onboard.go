package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrInvalidConfig is returned by Inspect for a file the gateway cannot use.
var ErrInvalidConfig = errors.New("invalid config")

// LevelStatus sits above slog.LevelError so the created/reused and launch
// lines survive any --log-level.
const LevelStatus = slog.LevelError + 4

// Result says which path EnsureConfig took.
type Result int

const (
	Reused Result = iota
	Created
)

func (r Result) String() string {
	if r == Created {
		return "created"
	}
	return "reused"
}

// FromEnv builds the config document for a first start.
func FromEnv(e Env) Config {
	model := e.DefaultModel
	if model == "" {
		model = DefaultModel
	}
	return Config{
		Providers: map[string]ProviderConfig{
			ProviderOpenRouter: {APIKey: e.OpenRouterAPIKey, APIBase: e.OpenRouterAPIBase},
			ProviderOpenAI:     {APIKey: e.OpenAIAPIKey, APIBase: e.OpenAIAPIBase},
			ProviderAnthropic:  {APIKey: e.AnthropicAPIKey, APIBase: e.AnthropicAPIBase},
		},
		Agents: AgentsConfig{DefaultModel: model},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{Enabled: bool(e.TelegramEnabled), Token: e.TelegramToken},
			Discord:  DiscordConfig{Enabled: bool(e.DiscordEnabled), Token: e.DiscordToken},
			Slack: SlackConfig{
				Enabled:  bool(e.SlackEnabled),
				BotToken: e.SlackBotToken,
				AppToken: e.SlackAppToken,
			},
		},
	}
}

// ResolveDefaultPaths returns the absolute config path under the home directory.
func ResolveDefaultPaths() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".nanobot", "config.json"), nil
}

// SaveConfig writes the config to path through a temp file in the same
// directory, so readers never observe a partial document.
func SaveConfig(fsys afero.Fs, cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	tmp, err := afero.TempFile(fsys, dir, ".config-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		fsys.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		fsys.Remove(tmpName)
		return err
	}
	if err := fsys.Chmod(tmpName, 0o640); err != nil {
		fsys.Remove(tmpName)
		return err
	}
	if err := fsys.Rename(tmpName, path); err != nil {
		fsys.Remove(tmpName)
		return err
	}
	return nil
}

// EnsureConfig creates the config at path from e unless a file is already
// there. An existing file is never rewritten, even when it does not parse.
func EnsureConfig(fsys afero.Fs, path string, e Env, logger *slog.Logger) (Result, error) {
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Reused, fmt.Errorf("creating config directory: %w", err)
	}
	info, err := fsys.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return Reused, fmt.Errorf("config path %s is a directory", path)
	case err == nil:
		logger.Log(context.Background(), LevelStatus, "using existing config", "path", path)
		if err := Inspect(fsys, path); err != nil {
			logger.Warn("existing config left untouched", "path", path, "error", err)
		}
		return Reused, nil
	case !errors.Is(err, fs.ErrNotExist):
		return Reused, fmt.Errorf("checking config: %w", err)
	}
	if err := SaveConfig(fsys, FromEnv(e), path); err != nil {
		return Reused, fmt.Errorf("saving config: %w", err)
	}
	logger.Log(context.Background(), LevelStatus, "created config from environment", "path", path)
	return Created, nil
}

// Inspect checks that path holds a JSON object with the providers, agents
// and channels sections. It only reads the file.
func Inspect(fsys afero.Fs, path string) error {
	b, err := afero.ReadFile(fsys, path)
	if err != nil {
		return err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for _, key := range []string{"providers", "agents", "channels"} {
		if _, ok := doc[key]; !ok {
			return fmt.Errorf("%w: missing %q section", ErrInvalidConfig, key)
		}
	}
	return nil
}
