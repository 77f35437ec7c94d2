package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsuzuri-app/tsuzuri/internal/localstate"
)

var (
	apiFlag string
	keyFlag string
	rootCmd = &cobra.Command{
		Use:   "diaryctl",
		Short: "CLI client for the tsuzuri diary REST API",
	}
)

func main() {
	defaultAPI := "http://localhost:8080"
	defaultKey := ""
	if saved, err := localstate.Load(); err == nil {
		if saved.APIBaseURL != "" {
			defaultAPI = saved.APIBaseURL
		}
		defaultKey = saved.APIKey
	}

	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", defaultAPI, "Diary service base URL")
	rootCmd.PersistentFlags().StringVarP(&keyFlag, "key", "k", defaultKey, "API key, when the service requires one")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	configCmd := &cobra.Command{Use: "config", Short: "Manage saved defaults (~/.tsuzuri)"}

	setAPICmd := &cobra.Command{
		Use:   "set-api URL",
		Short: "Save the service base URL as the default for future runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := localstate.Load()
			if err != nil {
				return err
			}
			s.APIBaseURL = args[0]
			return localstate.Save(s)
		},
	}
	configCmd.AddCommand(setAPICmd)

	setKeyCmd := &cobra.Command{
		Use:   "set-key KEY",
		Short: "Save the API key as the default for future runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := localstate.Load()
			if err != nil {
				return err
			}
			s.APIKey = args[0]
			return localstate.Save(s)
		},
	}
	configCmd.AddCommand(setKeyCmd)

	rootCmd.AddCommand(configCmd)
}
