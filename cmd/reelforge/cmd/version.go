package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reelforge/reelforge/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		info := version.GetInfo()
		fmt.Fprintf(cmd.OutOrStdout(), "%s\ncommit: %s\nbuilt:  %s\ngo:     %s (%s)\n",
			version.String(), info.Commit, info.Date, info.GoVersion, info.Platform)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
