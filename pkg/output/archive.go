package output

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"

	"github.com/user/nessus-authcheck/pkg/engine"
)

// ArchiveName derives the bundle file name from an explicit override or
// from the input directory.
func ArchiveName(override, inputDir string) string {
	name := strings.TrimSpace(override)
	if name == "" {
		dir := filepath.Clean(inputDir)
		if dir == "." || dir == string(filepath.Separator) {
			if abs, err := filepath.Abs(dir); err == nil {
				dir = abs
			}
		}
		name = filepath.Base(dir)
		if name == "" || name == "." || name == string(filepath.Separator) {
			name = "authcheck"
		}
	}
	return strings.TrimSuffix(name, ".zip") + ".zip"
}

// Archive bundles the workbook and JSON export into dir/name
func (s *Sink) Archive(name string) (string, error) {
	target := filepath.Join(s.opts.Dir, name)
	if err := s.fs.MkdirAll(s.opts.Dir, 0755); err != nil {
		return "", errors.Wrapf(engine.ErrOutputWrite, "%s: %v", target, err)
	}

	out, err := s.fs.Create(target)
	if err != nil {
		return "", errors.Wrapf(engine.ErrOutputWrite, "%s: %v", target, err)
	}

	zw := zip.NewWriter(out)
	for _, path := range []string{s.WorkbookPath(), s.JSONPath()} {
		if err := s.addToArchive(zw, path); err != nil {
			zw.Close()
			out.Close()
			return "", errors.Wrapf(engine.ErrOutputWrite, "%s: %v", target, err)
		}
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return "", errors.Wrapf(engine.ErrOutputWrite, "%s: %v", target, err)
	}
	if err := out.Close(); err != nil {
		return "", errors.Wrapf(engine.ErrOutputWrite, "%s: %v", target, err)
	}
	return target, nil
}

func (s *Sink) addToArchive(zw *zip.Writer, path string) error {
	info, err := s.fs.Stat(path)
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = filepath.Base(path)
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	f, err := s.fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
