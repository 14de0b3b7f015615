package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/local/nanoboot/internal/config"
	"github.com/local/nanoboot/internal/launcher"
)

const version = "0.1.0"

// deps are the process-wide collaborators, replaced in tests.
type deps struct {
	fs      afero.Fs
	environ func(dotenvPath string) (map[string]string, error)
	exec    launcher.ExecFunc
}

func defaultDeps() deps {
	return deps{fs: afero.NewOsFs(), environ: config.Environ, exec: launcher.Exec}
}

func newLogger(cmd *cobra.Command, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && a.Value.Any() == config.LevelStatus {
				a.Value = slog.StringValue("STATUS")
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), opts)), nil
}

func configPath(cmd *cobra.Command) (string, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath != "" {
		return cfgPath, nil
	}
	cfgPath, err := config.ResolveDefaultPaths()
	if err != nil {
		return "", fmt.Errorf("resolving config path: %w", err)
	}
	return cfgPath, nil
}

// setup resolves everything a subcommand needs before touching the config.
func setup(cmd *cobra.Command, d deps) (string, config.Env, map[string]string, *slog.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	vars, err := d.environ(envFile)
	if err != nil {
		return "", config.Env{}, nil, nil, err
	}
	level, _ := cmd.Flags().GetString("log-level")
	if !cmd.Flags().Changed("log-level") && vars["LOG_LEVEL"] != "" {
		level = vars["LOG_LEVEL"]
	}
	logger, err := newLogger(cmd, level)
	if err != nil {
		return "", config.Env{}, nil, nil, err
	}
	e, err := config.LoadEnv(vars)
	if err != nil {
		return "", config.Env{}, nil, nil, err
	}
	cfgPath, err := configPath(cmd)
	if err != nil {
		return "", config.Env{}, nil, nil, err
	}
	return cfgPath, e, vars, logger, nil
}

func environList(vars map[string]string) []string {
	out := make([]string, 0, len(vars))
	for k, v := range vars {
		out = append(out, k+"="+v)
	}
	return out
}

func NewRootCmd(d deps) *cobra.Command {
	run := func(cmd *cobra.Command, args []string) error {
		cfgPath, e, vars, logger, err := setup(cmd, d)
		if err != nil {
			return err
		}
		if _, err := config.EnsureConfig(d.fs, cfgPath, e, logger); err != nil {
			return err
		}
		return launcher.Launch(e, environList(vars), d.exec, logger)
	}

	rootCmd := &cobra.Command{
		Use:           "nanoboot",
		Short:         "Write the nanobot config from the environment and start the web UI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file path (default ~/.nanobot/config.json)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Optional dotenv file; process variables take precedence")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Ensure the config exists, then exec into the web UI server",
		RunE:  run,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Ensure the config exists without starting anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, e, _, logger, err := setup(cmd, d)
			if err != nil {
				return err
			}
			res, err := config.EnsureConfig(d.fs, cfgPath, e, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", res, cfgPath)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate an existing config without modifying it",
		RunE: func(cmd *cobra.Command, args []string) error {
			// check only reads the file; a bad environment must not fail it.
			cfgPath, err := configPath(cmd)
			if err != nil {
				return err
			}
			if err := config.Inspect(d.fs, cfgPath); err != nil {
				return fmt.Errorf("%s: %w", cfgPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s looks good\n", cfgPath)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "nanoboot v%s\n", version)
		},
	})

	return rootCmd
}

func main() {
	rootCmd := NewRootCmd(defaultDeps())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
