package commands

import (
	"github.com/spf13/cobra"

	"github.com/alkoleft/web-transport-addin/pkg/addin"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the add-in version",
	Run: func(cmd *cobra.Command, args []string) {
		p := newPrinter(cmd.OutOrStdout(), noColor)
		p.Info("webtransport %s", addin.Version)
		p.Muted("classes: %s", addin.ClassNames())
	},
}
