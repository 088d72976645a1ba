package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/qult"

// buildVersion is set via -ldflags "-X pkt.systems/qult/internal/version.buildVersion=...".
var buildVersion = ""

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Module    string `json:"module"`
	GoVersion string `json:"go_version"`
	Revision  string `json:"revision,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
}

// String renders the one-line form printed by `qult version`.
func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "qult %s (%s, %s)", i.Version, i.Module, i.GoVersion)
	if i.Revision != "" {
		fmt.Fprintf(&b, " rev %s", shortRevision(i.Revision))
		if i.Modified {
			b.WriteString("+dirty")
		}
	}
	return b.String()
}

// Read collects version details from build info.
func Read() Info {
	info, _ := debug.ReadBuildInfo()
	out := Info{
		Version:   fromBuildInfo(info, false),
		Module:    moduleFrom(info),
		GoVersion: runtime.Version(),
	}
	if info != nil {
		vcs := readVCS(info)
		out.Revision = vcs.revision
		out.Modified = vcs.modified
	}
	return out
}

// Current returns the best available version string (without dirty suffix).
func Current() string {
	info, _ := debug.ReadBuildInfo()
	return fromBuildInfo(info, false)
}

// CurrentWithDirty returns the best available version string (including dirty suffix when available).
func CurrentWithDirty() string {
	info, _ := debug.ReadBuildInfo()
	return fromBuildInfo(info, true)
}

// Module returns the module path from build info when available.
func Module() string {
	info, _ := debug.ReadBuildInfo()
	return moduleFrom(info)
}

func moduleFrom(info *debug.BuildInfo) string {
	if info != nil {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			return path
		}
	}
	return defaultModule
}

func fromBuildInfo(info *debug.BuildInfo, includeDirty bool) string {
	if strings.TrimSpace(buildVersion) != "" {
		return normalizeVersion(buildVersion, includeDirty)
	}
	if info != nil {
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
			return normalizeVersion(v, includeDirty)
		}
		if v := pseudoFromBuildInfo(info, includeDirty); v != "" {
			return v
		}
	}
	return "v0.0.0-unknown"
}

func normalizeVersion(v string, includeDirty bool) string {
	value := strings.TrimSpace(v)
	if includeDirty {
		return value
	}
	return strings.TrimSuffix(value, "+dirty")
}

type vcsInfo struct {
	revision string
	time     string
	modified bool
}

func readVCS(info *debug.BuildInfo) vcsInfo {
	var out vcsInfo
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			out.revision = setting.Value
		case "vcs.time":
			out.time = setting.Value
		case "vcs.modified":
			out.modified = setting.Value == "true"
		}
	}
	return out
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// pseudoFromBuildInfo builds a Go-style pseudo version from VCS stamps.
func pseudoFromBuildInfo(info *debug.BuildInfo, includeDirty bool) string {
	if info == nil {
		return ""
	}
	vcs := readVCS(info)
	if vcs.revision == "" || vcs.time == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, vcs.time)
	if err != nil {
		return ""
	}
	ver := "v0.0.0-" + parsed.UTC().Format("20060102150405") + "-" + shortRevision(vcs.revision)
	if vcs.modified && includeDirty {
		ver += "+dirty"
	}
	return ver
}
