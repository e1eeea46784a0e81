package nessus

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// DefaultExtension is the file extension of scan reports
const DefaultExtension = ".nessus"

// Discover lists the report files in dir with the given extension, in
// lexical order. With recursive set, subdirectories are walked depth-first.
func Discover(fs afero.Fs, dir, ext string, recursive bool) ([]string, error) {
	if ext == "" {
		ext = DefaultExtension
	}

	if !recursive {
		entries, err := afero.ReadDir(fs, dir)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list %s", dir)
		}
		var paths []string
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ext) {
				paths = append(paths, filepath.Join(dir, entry.Name()))
			}
		}
		return paths, nil
	}

	var paths []string
	err := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), ext) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to walk %s", dir)
	}
	return paths, nil
}

// ResolveFiles splits a comma-separated file list. Relative entries that do
// not exist as given are resolved against dir. Order is preserved.
func ResolveFiles(fs afero.Fs, dir, list string) []string {
	var paths []string
	for _, p := range strings.Split(list, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) && dir != "" {
			if ok, _ := afero.Exists(fs, p); !ok {
				p = filepath.Join(dir, p)
			}
		}
		paths = append(paths, p)
	}
	return paths
}
