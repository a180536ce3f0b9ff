package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// platformsCmd lists the enabled platforms
var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List enabled platforms",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			cobra.CheckErr(err)
		}
		for _, name := range cfg.EnabledPlatforms() {
			fmt.Println(name)
		}
	},
}

func init() {
	rootCmd.AddCommand(platformsCmd)
}
