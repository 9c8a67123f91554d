package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/znacky/internal/config"
	"github.com/spf13/cobra"
)

// NewFolderCmd creates the folder command.
func NewFolderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folder [path]",
		Short: "Show or set the default download directory",
		Long: `Folder prints the default download directory, or stores a new one when
a path is given. The path must name an existing directory and is saved
as an absolute path in the settings file:

  $XDG_CONFIG_HOME/znacky/settings.yaml

Examples:
  # Show the current default
  znacky folder

  # Use ~/Pictures/signs from now on
  znacky folder ~/Pictures/signs

  # Forget the default
  znacky folder --clear`,
		Args: cobra.MaximumNArgs(1),
		RunE: runFolderCmd,
	}

	cmd.Flags().Bool("clear", false, "Remove the default directory")

	return cmd
}

// runFolderCmd executes the folder command.
func runFolderCmd(cmd *cobra.Command, args []string) error {
	clearDir, err := cmd.Flags().GetBool("clear")
	if err != nil {
		return err
	}
	if clearDir && len(args) > 0 {
		return errors.New("--clear does not take a path")
	}
	return runFolder(cmd.OutOrStdout(), config.SettingsPath(), args, clearDir)
}

// runFolder shows, sets or clears defaultDirectory in the settings file at
// settingsPath.
func runFolder(w io.Writer, settingsPath string, args []string, clearDir bool) error {
	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return err
	}

	switch {
	case clearDir:
		settings.DefaultDirectory = ""
	case len(args) == 1:
		if err := settings.SetDefaultDirectory(args[0]); err != nil {
			return err
		}
	default:
		if settings.DefaultDirectory == "" {
			fmt.Fprintln(w, "No default directory set.")
			return nil
		}
		fmt.Fprintln(w, settings.DefaultDirectory)
		return nil
	}

	if err := config.SaveSettings(settingsPath, settings); err != nil {
		return err
	}

	if settings.DefaultDirectory == "" {
		fmt.Fprintln(w, "Default directory cleared.")
		return nil
	}
	fmt.Fprintf(w, "Default directory set to %s\n", settings.DefaultDirectory)
	return nil
}
