//go:build ignore

package main

import (
	"fmt"
	"os"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/llm"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/probe"
)

func main() {
	if err := os.MkdirAll("schemas", 0755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir: %v\n", err)
		os.Exit(1)
	}
	outputs := []struct {
		path string
		gen  func() ([]byte, error)
	}{
		{"schemas/junior-v1.json", llm.GenerateJuniorSchema},
		{"schemas/senior-v1.json", llm.GenerateSeniorSchema},
		{"schemas/catalog-v0.json", probe.GenerateCatalogSchema},
	}
	for _, o := range outputs {
		data, err := o.gen()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error generating %s: %v\n", o.path, err)
			os.Exit(1)
		}
		if err := os.WriteFile(o.path, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "write: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("wrote", o.path)
	}
}
