// Package cmd wires the marketd command tree.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "marketd",
	Short: "NFT marketplace settlement daemon",
	Long:  "marketd runs the marketplace settlement engine: fixed-price orders, English auctions, and the escrow ledger, served over REST and WebSocket.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.marketd/config.toml)")
}

// configPath resolves the effective config file; an empty return means run
// on defaults and environment only.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	home, err := homedir.Dir()
	if err != nil {
		return ""
	}
	p := filepath.Join(home, ".marketd", "config.toml")
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}
