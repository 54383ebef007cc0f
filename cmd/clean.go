package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tanq16/splitdl/internal/output"
	"github.com/tanq16/splitdl/internal/utils"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [path]",
		Short: "Clean up temporary files left by interrupted downloads",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			if err := utils.Clean(dir); err != nil {
				output.PrintError("Error cleaning up temporary files")
				return
			}
			output.PrintSuccess("Temporary files cleaned up")
		},
	}
}
