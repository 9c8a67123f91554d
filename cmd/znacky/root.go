package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for znacky.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "znacky",
		Short: "Crawl and download the Czech traffic sign catalogue",
		Long: `znacky crawls the traffic sign catalogue on celysvet.cz.

It follows the "next page" links from the first catalogue page, lists
every sign with its caption (code and description) and the URL of its
full-size image, and optionally saves the images into a directory.
Existing files are never overwritten.

Every run is recorded in a local history database; see 'znacky history'.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewLoadCmd())
	cmd.AddCommand(NewDownloadCmd())
	cmd.AddCommand(NewFolderCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
