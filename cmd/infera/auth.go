package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/computer-reinvention/infera/pkg/config"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored API credentials",
	}
	cmd.AddCommand(newAuthLoginCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Encrypt and store an Anthropic API key",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			apiKey, err := readSecret("Anthropic API key: ")
			if err != nil {
				return err
			}
			if apiKey == "" {
				return fmt.Errorf("API key must not be empty")
			}

			passphrase, err := readSecret("Choose a passphrase: ")
			if err != nil {
				return err
			}
			if len(passphrase) < 8 {
				return fmt.Errorf("passphrase must be at least 8 characters")
			}
			repeat, err := readSecret("Repeat passphrase: ")
			if err != nil {
				return err
			}
			if passphrase != repeat {
				return fmt.Errorf("passphrases do not match")
			}

			path, err := config.CredentialsPath()
			if err != nil {
				return err
			}
			if err := config.SaveAPIKey(path, passphrase, apiKey); err != nil {
				return err
			}

			fmt.Printf("Credentials saved to %s\n", path)
			fmt.Printf("The %s environment variable takes precedence when set.\n", config.EnvAPIKey)
			return nil
		},
	}
}

func readSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	value, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(value), nil
}
