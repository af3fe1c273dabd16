package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# Translation settings
translator:
  # translation engine: lexicon or openai
  engine: "lexicon"
  # model for the openai engine
  model: "gpt-4o-mini"
  # bounded retries for transient service failures
  retries: 2

# Speech synthesis settings
speech:
  # speech engine: gtts, openai, or mock
  engine: "gtts"
  # voice override (openai engine: alloy, echo, nova, ...)
  voice: ""
  # speech rate multiplier (0.25 to 4.0)
  speed: 1.0
  # slow speech (gtts only)
  slow: false

# Output settings
output:
  # artifact format: mp3, wav, or ogg
  format: "mp3"

# Audio cache settings
cache:
  enabled: true
  # cache directory (default: the user cache directory)
  dir: ""
  # disk cache capacity in MB
  max_size: 100
  # zstd compression level for cached audio (0 disables)
  compression: 3

# Per-stage time budgets
timeouts:
  translate: "30s"
  synthesize: "60s"
  encode: "30s"

# OpenAI settings (the OPENAI_API_KEY environment variable also works)
openai:
  # api_key: "your-api-key-here"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the polyvox config file",
	Long:    paragraph(fmt.Sprintf("\n%s the polyvox config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("polyvox config\npolyvox config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Polyvox", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
