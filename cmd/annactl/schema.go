package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/llm"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/probe"
)

var schemaCmd = &cobra.Command{
	Use:       "schema [junior|senior|catalog]",
	Short:     "Print a JSON Schema",
	Long:      "Print the JSON Schema for junior responses, senior verdicts or probe catalog files.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"junior", "senior", "catalog"},
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := generateSchema(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func generateSchema(kind string) ([]byte, error) {
	switch kind {
	case "junior":
		return llm.GenerateJuniorSchema()
	case "senior":
		return llm.GenerateSeniorSchema()
	case "catalog":
		return probe.GenerateCatalogSchema()
	}
	return nil, fmt.Errorf("unknown schema %q: use junior, senior or catalog", kind)
}
