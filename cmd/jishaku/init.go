package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dolfies/jishaku/internal/fsstore"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

type initConfigFile struct {
	Jsk struct {
		Prefix string   `yaml:"prefix"`
		Owners []string `yaml:"owners"`
		Retain bool     `yaml:"retain"`
	} `yaml:"jsk"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
	} `yaml:"telegram"`
	Discord struct {
		BotToken string `yaml:"bot_token"`
	} `yaml:"discord"`
	Guard struct {
		Audit struct {
			JSONLPath string `yaml:"jsonl_path"`
		} `yaml:"audit"`
	} `yaml:"guard"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the bot configuration",
	}
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Initialize config.yaml, prompting for bot tokens",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "~/.jishaku/"
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = args[0]
			}
			dir = expandHomePath(dir)
			if strings.TrimSpace(dir) == "" {
				return fmt.Errorf("invalid dir")
			}
			dir = filepath.Clean(dir)

			cfgPath := filepath.Join(dir, "config.yaml")
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists: %s", cfgPath)
			}

			var cfg initConfigFile
			cfg.Jsk.Prefix = "jsk"
			cfg.Jsk.Retain = false
			cfg.Guard.Audit.JSONLPath = filepath.ToSlash(filepath.Join(dir, "audit.jsonl"))
			cfg.Logging.Level = "info"
			cfg.Logging.Format = "text"

			cfg.Telegram.BotToken = promptSecret(cmd, "Telegram bot token (blank to skip): ")
			cfg.Discord.BotToken = promptSecret(cmd, "Discord bot token (blank to skip): ")
			if owner := promptLine(cmd, "Owner user id: "); owner != "" {
				cfg.Jsk.Owners = []string{owner}
			}

			body, err := yaml.Marshal(&cfg)
			if err != nil {
				return err
			}
			if err := fsstore.WriteTextAtomic(cfgPath, string(body), fsstore.FileOptions{}); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\n", cfgPath)
			return nil
		},
	}

	return cmd
}

// promptSecret reads without echo when stdin is a terminal, falling back to a
// plain line read otherwise.
func promptSecret(cmd *cobra.Command, prompt string) string {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(raw))
	}
	return readLine()
}

func promptLine(cmd *cobra.Command, prompt string) string {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	return readLine()
}

func readLine() string {
	var line string
	_, _ = fmt.Fscanln(os.Stdin, &line)
	return strings.TrimSpace(line)
}

func expandHomePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
