package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridden at link time via -ldflags.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the crateship version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("crateship", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
