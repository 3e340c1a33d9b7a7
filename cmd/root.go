/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "flashfeather",
	Short: "Authentication API server for flash-feather",
	Long: `flashfeather serves the cookie-based authentication API: local
registration and login, Google sign-in, and silent token refresh.

Configuration is read from the environment (and .env when ENV=dev).`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
