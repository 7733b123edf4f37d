package compileinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFromBuildInfo(t *testing.T) {
	c := fromBuildInfo(&debug.BuildInfo{
		GoVersion: "go1.24.0",
		Path:      "github.com/carbocation/tkvseg/cmd/tkvstats",
		Main:      debug.Module{Path: "github.com/carbocation/tkvseg", Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2024-01-01T00:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	if c.ShortCommit() != "0123456789ab" {
		t.Errorf("unexpected short commit %q", c.ShortCommit())
	}
	if !c.Modified {
		t.Error("expected modified")
	}
	if s := c.String(); !strings.Contains(s, "cmd/tkvstats") || !strings.Contains(s, "modified") {
		t.Errorf("unexpected description %q", s)
	}
	if c.Fields()["commit"] != "0123456789ab" {
		t.Errorf("unexpected fields %v", c.Fields())
	}
}

func TestEmpty(t *testing.T) {
	if !strings.Contains(CompileInfo{}.String(), "No build information") {
		t.Error("expected a placeholder for missing build info")
	}
}

func TestGetFields(t *testing.T) {
	f := Get().Fields()
	for _, key := range []string{"binary", "version", "commit", "modified"} {
		if _, ok := f[key]; !ok {
			t.Errorf("run log fields lack %q: %v", key, f)
		}
	}
}
