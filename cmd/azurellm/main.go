// Azurellm sends chat completions to an Azure OpenAI deployment using the
// configuration read from the environment, an optional .env file and an
// optional YAML config file. It also prints the resolved configuration and
// the client cache key it maps to.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/magentic/llmclients/pkg/providers/azureopenai"
	"github.com/spf13/cobra"
)

var version = "dev"

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	envFile    string
	configPath string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "azurellm",
		Short:         "Chat completions against Azure OpenAI",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadDotEnv(opts.envFile)
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "path to .env file (ignored if missing)")
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file (environment variables take precedence)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log client construction and token usage to stderr")

	root.AddCommand(
		newCompleteCmd(opts),
		newKeyCmd(opts),
		newConfigCmd(opts),
	)

	return root
}

// loadDotEnv loads environment variables from path. If the file does not exist
// it is silently ignored so that .env files remain optional.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// loadConfig resolves the configuration from the defaults, the config file
// when one was given and the environment, in increasing precedence.
func (o *rootOptions) loadConfig() (azureopenai.Config, error) {
	return azureopenai.Load(o.configPath)
}

func (o *rootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
