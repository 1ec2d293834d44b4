package probe

import "fmt"

// Gate checks a probe command against a binary allowlist and denylist.
// Deny takes precedence over allow; an empty allowlist permits anything not
// denied.
type Gate struct {
	AllowedCommands []string `yaml:"allowed_commands,omitempty" json:"allowed_commands,omitempty"`
	DeniedCommands  []string `yaml:"denied_commands,omitempty"  json:"denied_commands,omitempty"`
	// DeniedArgs blocks mutating verbs on otherwise allowed binaries.
	DeniedArgs map[string][]string `yaml:"denied_args,omitempty" json:"denied_args,omitempty"`
}

// DefaultGate allows the read-only inspection tools the standard catalog uses.
func DefaultGate() *Gate {
	return &Gate{
		AllowedCommands: []string{
			"cat", "df", "free", "ip", "journalctl", "lsblk", "lscpu", "lspci",
			"ps", "ss", "swapon", "systemctl", "systemd-analyze", "uname", "uptime",
		},
		DeniedCommands: []string{
			"bash", "dd", "mkfs", "reboot", "rm", "sh", "shutdown", "sudo", "zsh",
		},
		DeniedArgs: map[string][]string{
			"systemctl":  {"start", "stop", "restart", "enable", "disable", "mask", "kill", "reboot", "poweroff"},
			"journalctl": {"--vacuum-size", "--vacuum-time", "--rotate", "--flush"},
			"swapon":     {"-a", "--all"},
		},
	}
}

// CheckCommand validates argv against the gate.
func (g *Gate) CheckCommand(argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}
	command := argv[0]
	for _, denied := range g.DeniedCommands {
		if command == denied {
			return fmt.Errorf("command %q is denied by probe policy", command)
		}
	}
	for _, arg := range argv[1:] {
		for _, bad := range g.DeniedArgs[command] {
			if arg == bad {
				return fmt.Errorf("argument %q is denied for %q", arg, command)
			}
		}
	}
	if len(g.AllowedCommands) > 0 {
		for _, allowed := range g.AllowedCommands {
			if command == allowed {
				return nil
			}
		}
		return fmt.Errorf("command %q is not in the probe allowlist", command)
	}
	return nil
}
