// Package cmd wires the cobra command tree for the offline mastering
// harness, following the teacher's cmd/root.go shape: a root command
// that loads configuration once, then delegates to subcommands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/audiophile-labs/mastering-engine/cmd/mastercli/cmd/master"
	"github.com/audiophile-labs/mastering-engine/internal/config"
)

// RootCommand creates the mastercli root command.
func RootCommand(settings *config.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mastercli",
		Short: "Adaptive audio mastering engine CLI",
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
	}

	rootCmd.AddCommand(master.Command(settings))

	return rootCmd
}

func setupFlags(rootCmd *cobra.Command, settings *config.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
