package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Debug feature
	viper.SetDefault("jsk.prefix", "jsk")
	viper.SetDefault("jsk.owners", []string{})
	viper.SetDefault("jsk.retain", false)
	viper.SetDefault("jsk.shell_timeout", 10*time.Minute)
	viper.SetDefault("jsk.command_timeout", 0*time.Second)

	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.api_base_url", "https://api.telegram.org")
	viper.SetDefault("telegram.poll_timeout", 30*time.Second)
	viper.SetDefault("telegram.max_concurrency", 3)
	viper.SetDefault("telegram.reactions.enabled", true)
	viper.SetDefault("telegram.page_size", 3500)
	viper.SetDefault("telegram.allowed_chats", []string{})

	// Discord
	viper.SetDefault("discord.bot_token", "")
	viper.SetDefault("discord.api_base_url", "https://discord.com/api/v10")
	viper.SetDefault("discord.max_concurrency", 3)
	viper.SetDefault("discord.page_size", 1900)
	viper.SetDefault("discord.allowed_channels", []string{})

	// Audit trail
	viper.SetDefault("guard.audit.jsonl_path", "")
	viper.SetDefault("guard.audit.rotate_max_bytes", int64(100*1024*1024))

	viper.SetDefault("user_agent", "jishaku/1.0 (+https://github.com/dolfies/jishaku)")
}
