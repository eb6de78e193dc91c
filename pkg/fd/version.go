package fd

import "runtime"

// Version is the current version of the fdcore propagation core.
const Version = "0.3.0"

// VersionInfo provides detailed version information.
type VersionInfo struct {
	Version   string `json:"version" yaml:"version"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	GitCommit string `json:"git_commit,omitempty" yaml:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty" yaml:"build_date,omitempty"`
}

// GetVersionInfo returns detailed version information. Commit and date are
// filled in by the binary through linker flags.
func GetVersionInfo(commit, date string) VersionInfo {
	return VersionInfo{
		Version:   Version,
		GoVersion: runtime.Version(),
		GitCommit: commit,
		BuildDate: date,
	}
}
