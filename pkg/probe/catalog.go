// Package probe defines the read-only probe catalog, the evidence records
// produced by running probes, and the executors that run them.
package probe

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTimeout bounds a single probe when its catalog entry sets none.
const DefaultTimeout = 5 * time.Second

// Probe binds a catalog id to a fixed command. Models may only name ids;
// the command is never supplied by a model.
type Probe struct {
	ID      string   `yaml:"id"                json:"id"                jsonschema:"required,pattern=^[a-z0-9_]+(\\.[a-z0-9_]+)+$"`
	Label   string   `yaml:"label"             json:"label"             jsonschema:"required"`
	Command []string `yaml:"command"           json:"command"           jsonschema:"required,minItems=1"`
	Timeout string   `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"pattern=^[0-9]+(ms|s|m)$"`
}

// CommandText renders the argv as a single display string.
func (p Probe) CommandText() string {
	return strings.Join(p.Command, " ")
}

// TimeoutDuration returns the probe's timeout, or DefaultTimeout when unset
// or unparseable.
func (p Probe) TimeoutDuration() time.Duration {
	if p.Timeout == "" {
		return DefaultTimeout
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// Catalog is the immutable whitelist of probes. It is safe for concurrent
// use once constructed.
type Catalog struct {
	probes map[string]Probe
	order  []string
}

// NewCatalog builds a catalog, rejecting duplicate ids, empty commands and
// binaries the gate does not allow. A nil gate uses DefaultGate.
func NewCatalog(probes []Probe, gate *Gate) (*Catalog, error) {
	if gate == nil {
		gate = DefaultGate()
	}
	c := &Catalog{probes: make(map[string]Probe, len(probes))}
	for _, p := range probes {
		if p.ID == "" {
			return nil, fmt.Errorf("probe with label %q has no id", p.Label)
		}
		if _, dup := c.probes[p.ID]; dup {
			return nil, fmt.Errorf("duplicate probe id %q", p.ID)
		}
		if len(p.Command) == 0 {
			return nil, fmt.Errorf("probe %q: empty command", p.ID)
		}
		if err := gate.CheckCommand(p.Command); err != nil {
			return nil, fmt.Errorf("probe %q: %w", p.ID, err)
		}
		p.Command = append([]string(nil), p.Command...)
		c.probes[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c, nil
}

// IsValid reports whether id names a catalog probe.
func (c *Catalog) IsValid(id string) bool {
	_, ok := c.probes[id]
	return ok
}

// Get returns the probe for id.
func (c *Catalog) Get(id string) (Probe, bool) {
	p, ok := c.probes[id]
	return p, ok
}

// AvailableProbes returns catalog ids in declaration order.
func (c *Catalog) AvailableProbes() []string {
	return append([]string(nil), c.order...)
}

// Probes returns all probes in declaration order.
func (c *Catalog) Probes() []Probe {
	out := make([]Probe, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.probes[id])
	}
	return out
}

// Len returns the number of probes.
func (c *Catalog) Len() int { return len(c.order) }

// FilterValid splits requested ids into the catalog members (deduplicated,
// request order kept) and the rejected rest. Rejection is never an error.
func (c *Catalog) FilterValid(ids []string) (valid, rejected []string) {
	seen := make(map[string]bool, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if seen[id] {
			continue
		}
		seen[id] = true
		if c.IsValid(id) {
			valid = append(valid, id)
		} else {
			rejected = append(rejected, raw)
		}
	}
	return valid, rejected
}

// StandardCatalog returns the built-in probe set.
func StandardCatalog() *Catalog {
	c, err := NewCatalog(standardProbes, DefaultGate())
	if err != nil {
		panic(fmt.Sprintf("standard catalog: %v", err))
	}
	return c
}

var standardProbes = []Probe{
	{ID: "cpu.info", Label: "CPU model, cores and threads", Command: []string{"lscpu"}},
	{ID: "mem.info", Label: "Memory totals from /proc/meminfo", Command: []string{"cat", "/proc/meminfo"}},
	{ID: "swap.info", Label: "Active swap devices", Command: []string{"swapon", "--show", "--bytes"}},
	{ID: "disk.df", Label: "Root filesystem usage", Command: []string{"df", "-h", "/"}},
	{ID: "disk.usage", Label: "All mounted filesystems", Command: []string{"df", "-h"}},
	{ID: "disk.lsblk", Label: "Block devices", Command: []string{"lsblk"}},
	{ID: "hardware.gpu", Label: "PCI devices including GPUs", Command: []string{"lspci"}},
	{ID: "net.links", Label: "Network interfaces and addresses", Command: []string{"ip", "addr"}},
	{ID: "net.listening", Label: "Listening sockets", Command: []string{"ss", "-tulpn"}},
	{ID: "systemd.failed", Label: "Failed systemd units", Command: []string{"systemctl", "--failed", "--no-pager"}},
	{ID: "journal.errors", Label: "Error-priority journal entries this boot", Command: []string{"journalctl", "-p", "3", "-b", "--no-pager", "-n", "200"}, Timeout: "10s"},
	{ID: "boot.time", Label: "Boot time breakdown", Command: []string{"systemd-analyze"}},
	{ID: "proc.top_cpu", Label: "Processes by CPU usage", Command: []string{"ps", "aux", "--sort=-%cpu"}},
	{ID: "proc.top_mem", Label: "Processes by memory usage", Command: []string{"ps", "aux", "--sort=-%mem"}},
	{ID: "kernel.version", Label: "Kernel release", Command: []string{"uname", "-a"}},
	{ID: "system.uptime", Label: "Uptime and load average", Command: []string{"uptime"}},
}
