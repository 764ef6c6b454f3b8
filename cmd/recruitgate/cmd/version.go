package cmd

import (
	"fmt"

	"github.com/NeuralTrust/RecruitGate/pkg/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.GetInfo()
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, %s)\n", info.AppName, info.Version, info.GoVersion, info.Platform)
			return err
		},
	}
}
