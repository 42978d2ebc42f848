package main

import (
	"fmt"

	"github.com/dolfies/jishaku/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "jishaku %s\n", version.String())
			return nil
		},
	}
}
