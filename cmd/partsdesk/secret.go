package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/manthysbr/partsdesk/internal/config"
)

var secretCmd = &cobra.Command{
	Use:   "encrypt-secret <value>",
	Short: "Encrypt an API key for use as an enc: value in the config file",
	Long:  `Encrypts with $PARTSDESK_SECRET_KEY, or with ~/.partsdesk/secret.key (generated on first use).`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sk, err := config.NewSecretKey("")
		if err != nil {
			return err
		}
		enc, err := sk.Encrypt(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), enc)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(secretCmd)
}
