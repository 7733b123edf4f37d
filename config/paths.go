package config

import (
	"os/user"
	"path/filepath"
	"strings"
)

// ExpandHome expands ~ to its proper path, where appropriate. Paths are
// returned unchanged if the home directory cannot be found.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		usr, err := user.Current()
		if err != nil {
			return path
		}
		path = filepath.Join(usr.HomeDir, path[2:])
	}

	return path
}

// expandPaths applies ExpandHome to every path setting.
func (c *Config) expandPaths() {
	for _, p := range []*string{
		&c.Data.Root,
		&c.Data.Credentials,
		&c.Split.Path,
		&c.Export.Root,
		&c.Export.PredictionDir,
		&c.Stats.Root,
		&c.Stats.Output,
		&c.Ingress.Dir,
		&c.Ingress.Structured,
		&c.Ingress.Staging,
		&c.Ingress.Manifest,
		&c.Ingress.Status,
	} {
		*p = ExpandHome(*p)
	}
}
