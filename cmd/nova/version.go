package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jorge-rr00/newbackend"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of nova",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "nova version %s\n", strings.TrimSpace(newbackend.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
