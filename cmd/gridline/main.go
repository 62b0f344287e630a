package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ConfigFlag string

func main() {
	rootCmd := &cobra.Command{
		Use:   "gridline",
		Short: "Administrative tools for the gridline game server",
	}
	rootCmd.PersistentFlags().StringVarP(&ConfigFlag, "config", "c", "", "Path to the server config/data directory")

	accountCmd.AddCommand(accountAddCmd)
	accountCmd.AddCommand(accountDeleteCmd)

	banCmd.AddCommand(banAddCmd)
	banCmd.AddCommand(banRemoveCmd)
	banCmd.AddCommand(banListCmd)

	recordingsCmd.AddCommand(recordingsListCmd)

	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(banCmd)
	rootCmd.AddCommand(recordingsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
	}
}
