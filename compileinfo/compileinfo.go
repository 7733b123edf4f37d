// Package compileinfo reports the module version and VCS state a tkvseg
// binary was built from.
package compileinfo

import (
	"fmt"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

type CompileInfo struct {
	Package    string
	Module     string
	Version    string
	GoVersion  string
	Commit     string
	CommitTime string
	Modified   bool
}

// ShortCommit is the first 12 characters of the commit hash.
func (c CompileInfo) ShortCommit() string {
	if len(c.Commit) > 12 {
		return c.Commit[:12]
	}
	return c.Commit
}

func (c CompileInfo) String() string {
	if c.Package == "" {
		return "No build information is embedded in this binary."
	}

	mod := ""
	if c.Modified {
		mod = " Files in the repo were modified after that commit."
	}

	return fmt.Sprintf("This %s binary (%s %s) was built with %s at commit %v at time %v.%s",
		c.Package, c.Module, c.Version, c.GoVersion, c.ShortCommit(), c.CommitTime, mod)
}

// Fields are the build details as structured log fields, for tagging run
// summaries.
func (c CompileInfo) Fields() log.Fields {
	return log.Fields{
		"binary":   c.Package,
		"version":  c.Version,
		"commit":   c.ShortCommit(),
		"modified": c.Modified,
	}
}

func fromBuildInfo(z *debug.BuildInfo) CompileInfo {
	out := CompileInfo{
		GoVersion: z.GoVersion,
		Package:   z.Path,
		Module:    z.Main.Path,
		Version:   z.Main.Version,
	}

	for _, s := range z.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}

func Get() CompileInfo {
	z, ok := debug.ReadBuildInfo()
	if !ok {
		return CompileInfo{}
	}
	return fromBuildInfo(z)
}

func PrintToStdErr() {
	fmt.Fprintf(os.Stderr, "%s\n", Get())
}
