package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage the local API key",
}

var apikeyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the API key, creating it on first use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, _, store, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		key, err := store.APIKeys().GetOrCreate(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key.Key)
		return nil
	},
}

var apikeyRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Replace the API key; the previous one stops working",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, log, store, err := setup()
		if err != nil {
			return err
		}
		defer store.Close()

		key, err := store.APIKeys().Refresh(cmd.Context())
		if err != nil {
			return err
		}
		log.Info("api key refreshed")
		fmt.Fprintln(cmd.OutOrStdout(), key.Key)
		return nil
	},
}

func init() {
	apikeyCmd.AddCommand(apikeyShowCmd, apikeyRefreshCmd)
	rootCmd.AddCommand(apikeyCmd)
}
