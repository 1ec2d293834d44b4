package probe

import (
	"errors"
	"strings"
	"testing"
)

const validCatalog = `apiVersion: catalog/v0
redactions:
  - pattern: "host-[0-9]+"
    replace: "host-X"
probes:
  - id: mem.info
    label: Memory
    command: [cat, /proc/meminfo]
  - id: sys.uptime
    label: Uptime
    command: [uptime]
    timeout: 2s
`

func TestLoadCatalog_Valid(t *testing.T) {
	cat, red, err := LoadCatalog(strings.NewReader(validCatalog))
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if cat.Len() != 2 {
		t.Errorf("len = %d, want 2", cat.Len())
	}
	p, _ := cat.Get("sys.uptime")
	if p.TimeoutDuration().Seconds() != 2 {
		t.Errorf("timeout = %v", p.TimeoutDuration())
	}
	if got := red.Redact("seen on host-42"); got != "seen on host-X" {
		t.Errorf("custom redaction = %q", got)
	}
}

func TestLoadCatalog_UnknownField(t *testing.T) {
	_, _, err := LoadCatalog(strings.NewReader("apiVersion: catalog/v0\nshell: true\nprobes: []\n"))
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Phase != "structural" {
		t.Fatalf("err = %v, want structural ValidationError", err)
	}
}

func TestLoadCatalog_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad version", "apiVersion: catalog/v9\nprobes:\n  - {id: a.b, label: x, command: [uptime]}\n"},
		{"bad id", "apiVersion: catalog/v0\nprobes:\n  - {id: 'NoDots', label: x, command: [uptime]}\n"},
		{"bad timeout", "apiVersion: catalog/v0\nprobes:\n  - {id: a.b, label: x, command: [uptime], timeout: forever}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LoadCatalog(strings.NewReader(tt.doc))
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Phase != "semantic" {
				t.Fatalf("err = %v, want semantic ValidationError", err)
			}
		})
	}
}

func TestLoadCatalog_GateApplied(t *testing.T) {
	doc := "apiVersion: catalog/v0\nprobes:\n  - {id: a.b, label: x, command: [curl, example.com]}\n"
	_, _, err := LoadCatalog(strings.NewReader(doc))
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Phase != "domain" {
		t.Fatalf("err = %v, want domain ValidationError", err)
	}
}

func TestGenerateCatalogSchema(t *testing.T) {
	data, err := GenerateCatalogSchema()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "catalog-v0.json") {
		t.Error("schema missing $id")
	}
}
