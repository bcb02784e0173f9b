package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/i2y/brandlink/schema"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema [name]",
		Short:     "Print the JSON Schema of a wire document",
		Long:      "Schema prints the JSON Schema of the metadata object (default), the response body or the impression body.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: schema.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "metadata"
			if len(args) == 1 {
				name = args[0]
			}
			raw, err := schema.For(name)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := json.Indent(&buf, raw, "", "  "); err != nil {
				return fmt.Errorf("formatting schema: %w", err)
			}
			buf.WriteByte('\n')
			_, err = buf.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
}
