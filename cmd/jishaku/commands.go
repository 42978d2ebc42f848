package main

import (
	"strings"

	"github.com/dolfies/jishaku/feature"
	"github.com/dolfies/jishaku/internal/clifmt"
	"github.com/spf13/cobra"
)

func newCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List the chat debug commands this bot responds to",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := feature.New(feature.Config{})
			rows := make([]clifmt.NameDetailRow, 0)
			for _, c := range runner.Commands() {
				name := c.Name
				if len(c.Aliases) > 0 {
					name += " (" + strings.Join(c.Aliases, ", ") + ")"
				}
				rows = append(rows, clifmt.NameDetailRow{Name: name, Detail: c.Summary})
			}
			clifmt.PrintNameDetailTable(cmd.OutOrStdout(), clifmt.NameDetailTableOptions{
				Title:      "Debug commands",
				Rows:       rows,
				NameHeader: "COMMAND",
				EmptyText:  "No commands registered.",
			})
			return nil
		},
	}
}
