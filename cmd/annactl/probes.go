package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/app"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/display"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/probe"
)

var probesJSON bool

var probesCmd = &cobra.Command{
	Use:   "probes",
	Short: "List the probe catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, _, err := app.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			return err
		}
		if probesJSON {
			return writeProbesJSON(cmd, catalog)
		}
		fmt.Fprint(cmd.OutOrStdout(), display.Probes(catalog, 100))
		return nil
	},
}

func writeProbesJSON(cmd *cobra.Command, catalog *probe.Catalog) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(catalog.Probes())
}

func init() {
	probesCmd.Flags().BoolVar(&probesJSON, "json", false, "Print the catalog as JSON")
}
