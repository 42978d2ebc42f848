package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dolfies/jishaku/cmd/jishaku/telegramcmd"
	"github.com/dolfies/jishaku/feature"
	"github.com/dolfies/jishaku/guard"
	"github.com/dolfies/jishaku/internal/logutil"
)

func newTelegramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "telegram",
		Short: "Run the debug bot against the Telegram Bot API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}

			token := viper.GetString("telegram.bot_token")
			if token == "" {
				return fmt.Errorf("telegram.bot_token is required (flag --telegram-bot-token or JISHAKU_TELEGRAM_BOT_TOKEN)")
			}
			owners := viper.GetStringSlice("jsk.owners")
			if len(owners) == 0 {
				return fmt.Errorf("jsk.owners is required: nobody would be able to run commands")
			}
			var allowedChats []int64
			for _, raw := range viper.GetStringSlice("telegram.allowed_chats") {
				id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
				if err != nil {
					return fmt.Errorf("telegram.allowed_chats: %q is not a chat id", raw)
				}
				allowedChats = append(allowedChats, id)
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

			var rt *telegramcmd.Runtime
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

			rt, err = telegramcmd.NewRuntime(telegramcmd.Options{
				Token:            token,
				BaseURL:          viper.GetString("telegram.api_base_url"),
				PollTimeout:      viper.GetDuration("telegram.poll_timeout"),
				MaxConcurrency:   viper.GetInt("telegram.max_concurrency"),
				PageSize:         viper.GetInt("telegram.page_size"),
				ReactionsEnabled: viper.GetBool("telegram.reactions.enabled"),
				Owners:           owners,
				AllowedChats:     allowedChats,
				Runner:           runner,
				Logger:           logger,
				HTTPClient:       &http.Client{Timeout: 90 * time.Second},
			})
			if err != nil {
				return err
			}
			return rt.Run(cmd.Context())
		},
	}
	cmd.Flags().String("telegram-bot-token", "", "Telegram bot token")
	_ = viper.BindPFlag("telegram.bot_token", cmd.Flags().Lookup("telegram-bot-token"))
	return cmd
}
