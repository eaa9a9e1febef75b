package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the current version of saferename.
const Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the saferename version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("saferename version %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
