package probe

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// MemSummary is the subset of /proc/meminfo the engine reasons about.
type MemSummary struct {
	TotalKiB     uint64 `json:"total_kib"`
	AvailableKiB uint64 `json:"available_kib"`
	SwapTotalKiB uint64 `json:"swap_total_kib"`
	SwapFreeKiB  uint64 `json:"swap_free_kib"`
}

// TotalGiB returns MemTotal in GiB.
func (m MemSummary) TotalGiB() float64 { return float64(m.TotalKiB) / (1024 * 1024) }

// AvailableGiB returns MemAvailable in GiB.
func (m MemSummary) AvailableGiB() float64 { return float64(m.AvailableKiB) / (1024 * 1024) }

// ParseMemInfo reads /proc/meminfo text. MemTotal is required.
func ParseMemInfo(raw string) (MemSummary, error) {
	var m MemSummary
	sc := bufio.NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		key, rest, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		v, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}
		switch key {
		case "MemTotal":
			m.TotalKiB = v
		case "MemAvailable":
			m.AvailableKiB = v
		case "SwapTotal":
			m.SwapTotalKiB = v
		case "SwapFree":
			m.SwapFreeKiB = v
		}
	}
	if m.TotalKiB == 0 {
		return m, fmt.Errorf("meminfo: MemTotal not found")
	}
	return m, nil
}

// CPUSummary is the subset of lscpu output the engine reasons about.
type CPUSummary struct {
	Model          string `json:"model"`
	Threads        int    `json:"threads"`
	CoresPerSocket int    `json:"cores_per_socket"`
	Sockets        int    `json:"sockets"`
}

// PhysicalCores returns cores per socket times sockets.
func (c CPUSummary) PhysicalCores() int {
	sockets := c.Sockets
	if sockets == 0 {
		sockets = 1
	}
	return c.CoresPerSocket * sockets
}

// ParseLscpu reads `lscpu` text. CPU(s) is required.
func ParseLscpu(raw string) (CPUSummary, error) {
	var c CPUSummary
	sc := bufio.NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		switch key {
		case "CPU(s)":
			c.Threads, _ = strconv.Atoi(val)
		case "Core(s) per socket", "Core(s) per cluster":
			if c.CoresPerSocket == 0 {
				c.CoresPerSocket, _ = strconv.Atoi(val)
			}
		case "Socket(s)":
			c.Sockets, _ = strconv.Atoi(val)
		case "Model name":
			if c.Model == "" {
				c.Model = val
			}
		}
	}
	if c.Threads == 0 {
		return c, fmt.Errorf("lscpu: CPU(s) not found")
	}
	if c.CoresPerSocket == 0 {
		c.CoresPerSocket = c.Threads
	}
	return c, nil
}

// DiskSummary is one row of `df -h` output.
type DiskSummary struct {
	Filesystem string `json:"filesystem"`
	Size       string `json:"size"`
	Used       string `json:"used"`
	Available  string `json:"available"`
	UsePercent string `json:"use_percent"`
	MountedOn  string `json:"mounted_on"`
}

// ParseDf reads `df -h` text and returns the row mounted on mount.
func ParseDf(raw, mount string) (DiskSummary, error) {
	sc := bufio.NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) < 6 || f[0] == "Filesystem" {
			continue
		}
		if f[len(f)-1] != mount {
			continue
		}
		return DiskSummary{
			Filesystem: f[0],
			Size:       f[1],
			Used:       f[2],
			Available:  f[3],
			UsePercent: f[4],
			MountedOn:  f[len(f)-1],
		}, nil
	}
	return DiskSummary{}, fmt.Errorf("df: no row for %q", mount)
}
