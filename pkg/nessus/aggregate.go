package nessus

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/user/nessus-authcheck/pkg/engine"
)

// FileError records why one input file was skipped
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Result is the outcome of aggregating a batch of report files
type Result struct {
	Records   []engine.FlatRecord
	Processed []string
	Failed    []FileError
}

// Aggregator parses and flattens report files and concatenates their
// records in input order. A file that fails is logged and skipped.
type Aggregator struct {
	fs      afero.Fs
	log     logrus.FieldLogger
	dump    bool
	keep    bool
	dumpDir string
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithLogger sets the logger used for per-file progress and warnings
func WithLogger(log logrus.FieldLogger) Option {
	return func(a *Aggregator) { a.log = log }
}

// WithTreeDumps writes each parsed tree as JSON into a run-scoped temp
// directory. Unless keep is set, Cleanup removes it.
func WithTreeDumps(keep bool) Option {
	return func(a *Aggregator) {
		a.dump = true
		a.keep = keep
	}
}

// NewAggregator creates an aggregator reading from fs
func NewAggregator(fs afero.Fs, opts ...Option) *Aggregator {
	a := &Aggregator{
		fs:  fs,
		log: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate processes paths in order. It never fails as a whole.
func (a *Aggregator) Aggregate(paths []string) *Result {
	res := &Result{Records: make([]engine.FlatRecord, 0)}

	for i, path := range paths {
		log := a.log.WithField("file", path)

		records, err := a.processFile(i, path)
		if err != nil {
			log.WithError(err).Warn("Skipping report")
			res.Failed = append(res.Failed, FileError{Path: path, Err: err})
			continue
		}

		log.WithField("records", len(records)).Info("Processed report")
		res.Records = append(res.Records, records...)
		res.Processed = append(res.Processed, path)
	}
	return res
}

func (a *Aggregator) processFile(index int, path string) ([]engine.FlatRecord, error) {
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read report")
	}

	tree, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if a.dump {
		if err := a.dumpTree(index, path, tree); err != nil {
			a.log.WithField("file", path).WithError(err).Warn("Could not dump report tree")
		}
	}

	return Flatten(tree)
}

func (a *Aggregator) dumpTree(index int, path string, tree Tree) error {
	if a.dumpDir == "" {
		dir, err := afero.TempDir(a.fs, "", "authcheck-")
		if err != nil {
			return err
		}
		a.dumpDir = dir
	}

	data, err := tree.JsonIndent("", "  ")
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name := fmt.Sprintf("%03d_%s_output.json", index, base)
	target := filepath.Join(a.dumpDir, name)
	if err := afero.WriteFile(a.fs, target, data, 0600); err != nil {
		return err
	}
	a.log.WithField("dump", target).Debug("Created tree dump")
	return nil
}

// DumpDir returns the directory holding tree dumps, or "" when none was written
func (a *Aggregator) DumpDir() string {
	return a.dumpDir
}

// Cleanup removes the tree dumps of this run
func (a *Aggregator) Cleanup() error {
	if a.dumpDir == "" || a.keep {
		return nil
	}
	if err := a.fs.RemoveAll(a.dumpDir); err != nil {
		return errors.Wrapf(err, "failed to remove %s", a.dumpDir)
	}
	a.log.WithField("dir", a.dumpDir).Debug("Removed tree dumps")
	a.dumpDir = ""
	return nil
}
