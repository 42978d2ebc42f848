package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dolfies/jishaku/cmd/jishaku/discordcmd"
	"github.com/dolfies/jishaku/feature"
	"github.com/dolfies/jishaku/guard"
	"github.com/dolfies/jishaku/internal/logutil"
)

func newDiscordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discord",
		Short: "Run the debug bot against the Discord gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}

			token := viper.GetString("discord.bot_token")
			if token == "" {
				return fmt.Errorf("discord.bot_token is required (flag --discord-bot-token or JISHAKU_DISCORD_BOT_TOKEN)")
			}
			owners := viper.GetStringSlice("jsk.owners")
			if len(owners) == 0 {
				return fmt.Errorf("jsk.owners is required: nobody would be able to run commands")
			}

			g, err := guard.New(guard.Config{
				Owners: owners,
				Audit: guard.AuditConfig{
					JSONLPath:      viper.GetString("guard.audit.jsonl_path"),
					RotateMaxBytes: viper.GetInt64("guard.audit.rotate_max_bytes"),
				},
			}, logger)
			if err != nil {
				return err
			}
			defer func() { _ = g.Close() }()

			var rt *discordcmd.Runtime
			runner := feature.New(feature.Config{
				Prefix:         viper.GetString("jsk.prefix"),
				Owners:         owners,
				Allow:          g.Allowed,
				Retain:         viper.GetBool("jsk.retain"),
				ShellTimeout:   viper.GetDuration("jsk.shell_timeout"),
				CommandTimeout: viper.GetDuration("jsk.command_timeout"),
				Stats:          func() []string { return rt.Stats() },
				Auditor:        g,
				Logger:         logger,
			})

			rt, err = discordcmd.NewRuntime(discordcmd.Options{
				Token:           token,
				BaseURL:         viper.GetString("discord.api_base_url"),
				MaxConcurrency:  viper.GetInt("discord.max_concurrency"),
				PageSize:        viper.GetInt("discord.page_size"),
				Owners:          owners,
				AllowedChannels: viper.GetStringSlice("discord.allowed_channels"),
				UserAgent:       viper.GetString("user_agent"),
				Runner:          runner,
				Logger:          logger,
				HTTPClient:      &http.Client{Timeout: 30 * time.Second},
			})
			if err != nil {
				return err
			}
			return rt.Run(cmd.Context())
		},
	}
	cmd.Flags().String("discord-bot-token", "", "Discord bot token")
	_ = viper.BindPFlag("discord.bot_token", cmd.Flags().Lookup("discord-bot-token"))
	return cmd
}
