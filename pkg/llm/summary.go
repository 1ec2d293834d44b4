package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/probe"
)

const previewChars = 200

// SummarizeEvidence condenses one evidence record into a short JSON string
// so prompts stay small. Known probes get structured summaries; anything
// else gets a preview of its output.
func SummarizeEvidence(ev probe.Evidence) string {
	if !ev.OK() {
		return compact(map[string]any{"status": "error", "error": ev.Error})
	}
	switch ev.ProbeID {
	case "cpu.info":
		if c, err := probe.ParseLscpu(ev.Raw); err == nil {
			return compact(map[string]any{
				"model": c.Model, "cores": c.PhysicalCores(), "threads": c.Threads,
			})
		}
	case "mem.info":
		if m, err := probe.ParseMemInfo(ev.Raw); err == nil {
			return compact(map[string]any{
				"total_gib":      round1(m.TotalGiB()),
				"available_gib":  round1(m.AvailableGiB()),
				"swap_total_kib": m.SwapTotalKiB,
				"swap_free_kib":  m.SwapFreeKiB,
			})
		}
	case "disk.df":
		if d, err := probe.ParseDf(ev.Raw, "/"); err == nil {
			return compact(d)
		}
	case "disk.lsblk":
		n := 0
		for _, l := range strings.Split(ev.Raw, "\n") {
			l = strings.TrimSpace(l)
			if strings.HasPrefix(l, "sd") || strings.HasPrefix(l, "nvme") || strings.HasPrefix(l, "vd") {
				n++
			}
		}
		return compact(map[string]any{"devices": n})
	case "hardware.gpu":
		lower := strings.ToLower(ev.Raw)
		return compact(map[string]any{
			"nvidia": strings.Contains(lower, "nvidia"),
			"amd":    strings.Contains(lower, "amd") || strings.Contains(lower, "radeon"),
			"intel":  strings.Contains(lower, "intel"),
		})
	}
	return compact(map[string]any{"preview": preview(ev.Raw)})
}

func preview(s string) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) > previewChars {
		r = r[:previewChars]
	}
	return string(r)
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func compact(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%q", fmt.Sprint(v))
	}
	return string(b)
}
