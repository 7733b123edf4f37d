package index

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/carbocation/tkvseg"
)

// Discover lists every .dcm file below root, compressed or not, sorted by
// path.
func Discover(root string) ([]string, error) {
	var out []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(tkvseg.TrimCompressionExt(path)), ".dcm") {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, pfx.Err(err)
	}

	sort.Strings(out)

	return out, nil
}
