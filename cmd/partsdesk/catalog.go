package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/manthysbr/partsdesk/internal/adapters/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Catalog utilities",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Load a catalog file and report problems",
	Long:  `Loads the YAML catalog (the embedded one when no file is given), enforces its invariants and prints a summary. Exits non-zero on hard errors.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		cat, err := catalog.Open(path)
		if err != nil {
			return fmt.Errorf("catalog is invalid: %w", err)
		}

		st := cat.Stats()
		out, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		if len(st.DanglingRefs) > 0 || len(st.WithoutSteps) > 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "catalog loaded with warnings")
			return nil
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "catalog is valid")
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogValidateCmd)
	rootCmd.AddCommand(catalogCmd)
}
