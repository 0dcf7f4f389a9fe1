package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/tagbridge"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tagbridge",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tagbridge version %s\n", strings.TrimSpace(tagbridge.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
