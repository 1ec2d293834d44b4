package probe

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const meminfo = `MemTotal:       16318480 kB
MemFree:         1209884 kB
MemAvailable:    9437184 kB
SwapTotal:       8388604 kB
SwapFree:        8388604 kB
`

const lscpu = `Architecture:            x86_64
CPU(s):                  16
Model name:              AMD Ryzen 7 5800X 8-Core Processor
Thread(s) per core:      2
Core(s) per socket:      8
Socket(s):               1
`

const df = `Filesystem      Size  Used Avail Use% Mounted on
/dev/nvme0n1p2  468G  201G  244G  46% /
tmpfs           7.8G  4.0K  7.8G   1% /tmp
`

func TestParseMemInfo(t *testing.T) {
	m, err := ParseMemInfo(meminfo)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(m.AvailableGiB()-9.0) > 0.001 {
		t.Errorf("available = %.3f GiB, want 9.0", m.AvailableGiB())
	}
	if m.SwapTotalKiB != 8388604 {
		t.Errorf("swap total = %d", m.SwapTotalKiB)
	}
	if _, err := ParseMemInfo("garbage"); err == nil {
		t.Error("expected error for missing MemTotal")
	}
}

func TestParseLscpu(t *testing.T) {
	c, err := ParseLscpu(lscpu)
	if err != nil {
		t.Fatal(err)
	}
	want := CPUSummary{Model: "AMD Ryzen 7 5800X 8-Core Processor", Threads: 16, CoresPerSocket: 8, Sockets: 1}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if c.PhysicalCores() != 8 {
		t.Errorf("physical cores = %d, want 8", c.PhysicalCores())
	}
}

func TestParseDf(t *testing.T) {
	d, err := ParseDf(df, "/")
	if err != nil {
		t.Fatal(err)
	}
	if d.Size != "468G" || d.Available != "244G" || d.UsePercent != "46%" {
		t.Errorf("row = %+v", d)
	}
	if _, err := ParseDf(df, "/home"); err == nil {
		t.Error("expected error for missing mount")
	}
}
