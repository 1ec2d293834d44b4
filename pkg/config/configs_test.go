package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadFile_Shipped(t *testing.T) {
	for _, k := range []string{"ANNA_LLM_ENDPOINT", "ANNA_LLM_API_KEY", "ANNA_JUNIOR_MODEL", "ANNA_SENIOR_MODEL", "ANNA_MAX_LOOPS", "ANNA_DEBUG", "ANNA_TRACE_FILE"} {
		t.Setenv(k, "")
	}
	cfg, err := LoadFile("../../configs/anna.yaml")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	want := Default()
	want.CatalogPath = "configs/catalog.yaml"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("shipped config differs from defaults (-want +got):\n%s", diff)
	}
}
