package deps

import (
	"os/exec"
	"strings"
)

// Status represents the installation status of a dependency
type Status struct {
	Installed bool
	Path      string
	Version   string
}

// Tool describes an external program mockroom shells out to.
type Tool struct {
	Name        string
	VersionFlag string
	Purpose     string
	Required    bool
}

// Tools lists every external program used at runtime.
var Tools = []Tool{
	{Name: "pw-record", VersionFlag: "--version", Purpose: "microphone capture", Required: true},
	{Name: "pw-play", VersionFlag: "--version", Purpose: "interviewer playback", Required: true},
	{Name: "pw-cli", VersionFlag: "--version", Purpose: "echo-cancel detection"},
	{Name: "ffplay", VersionFlag: "-version", Purpose: "camera preview"},
	{Name: "notify-send", VersionFlag: "--version", Purpose: "desktop notifications"},
}

// Check looks name up in PATH and reads its version from the first line
// printed for versionFlag.
func Check(name, versionFlag string) Status {
	path, err := exec.LookPath(name)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{
		Installed: true,
		Path:      path,
	}

	if versionFlag == "" {
		return status
	}
	output, err := exec.Command(path, versionFlag).Output()
	if err == nil {
		lines := strings.Split(string(output), "\n")
		for _, line := range lines {
			if v := strings.TrimSpace(line); v != "" {
				status.Version = v
				break
			}
		}
	}

	return status
}

// CheckAll reports every tool in Tools, in order.
func CheckAll() map[string]Status {
	out := make(map[string]Status, len(Tools))
	for _, t := range Tools {
		out[t.Name] = Check(t.Name, t.VersionFlag)
	}
	return out
}

// Missing returns the required tools that are not installed.
func Missing(statuses map[string]Status) []Tool {
	var missing []Tool
	for _, t := range Tools {
		if t.Required && !statuses[t.Name].Installed {
			missing = append(missing, t)
		}
	}
	return missing
}
