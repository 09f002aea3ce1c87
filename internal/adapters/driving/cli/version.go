package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the ragkit build",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		line := "ragkit " + version
		if verbose {
			line += fmt.Sprintf(" (%s, %s/%s)", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		}
		cmd.Println(line)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
