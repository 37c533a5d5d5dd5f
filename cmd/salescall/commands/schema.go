package commands

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/koscakluka/ema-sales/core/leads"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:       "schema <profile|leads>",
	Short:     "Print the JSON schema of the company profile or leads file",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"profile", "leads"},
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := schemaFor(args[0])
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode schema: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func schemaFor(name string) (*jsonschema.Schema, error) {
	reflector := &jsonschema.Reflector{DoNotReference: true}
	switch name {
	case "profile":
		return reflector.Reflect(&leads.Profile{}), nil
	case "leads":
		return reflector.Reflect(&[]leads.Lead{}), nil
	default:
		return nil, fmt.Errorf("unknown schema %q, expected profile or leads", name)
	}
}
