package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// maybeJSON writes v as JSON when asJSON is set and reports whether it did.
func maybeJSON(cmd *cobra.Command, asJSON bool, v any) (bool, error) {
	if !asJSON {
		return false, nil
	}
	return true, writeJSON(cmd, v)
}
