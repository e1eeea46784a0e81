// Package pipeline wires discovery, aggregation, classification and the
// output sink into a single run.
package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/user/nessus-authcheck/pkg/engine"
	"github.com/user/nessus-authcheck/pkg/nessus"
	"github.com/user/nessus-authcheck/pkg/output"
	"github.com/user/nessus-authcheck/pkg/store"
)

var now = time.Now

// Recorder persists a finished run. *store.Store implements it.
type Recorder interface {
	SaveRun(sum store.Summary, records []engine.FlatRecord, errs []engine.ClassifiedError) error
}

// Options describes one run
type Options struct {
	InputDir  string
	Extension string
	Recursive bool
	// Files, when set, replaces directory discovery. Order is kept.
	Files []string

	Output output.Options
	Rules  *engine.RuleSet

	// Archive bundles the outputs into ArchiveName (derived when empty).
	Archive     bool
	ArchiveName string

	DumpTrees bool
	KeepDumps bool

	Snapshot string
	Baseline string

	Recorder Recorder
	Logger   logrus.FieldLogger
}

// Report summarizes a finished run
type Report struct {
	RunID     string
	Inputs    []string
	Processed []string
	Failed    []nessus.FileError
	Records   []engine.FlatRecord
	Errors    []engine.ClassifiedError
	Workbook  string
	JSON      string
	Archive   string
	Diff      *engine.SnapshotDiff
	// Classified is false when there was nothing to classify.
	Classified bool
}

// Run executes the pipeline over fs
func Run(fs afero.Fs, opts Options) (*Report, error) {
	if opts.Rules == nil {
		rules, err := engine.DefaultRules()
		if err != nil {
			return nil, err
		}
		opts.Rules = rules
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	rep := &Report{RunID: uuid.NewString()}
	log = log.WithField("run_id", rep.RunID)
	log.WithField("input_dir", opts.InputDir).Info("Starting run")

	inputs := opts.Files
	if len(inputs) == 0 {
		found, err := nessus.Discover(fs, opts.InputDir, opts.Extension, opts.Recursive)
		if err != nil {
			return nil, err
		}
		inputs = found
	}
	rep.Inputs = inputs
	log.WithField("files", len(inputs)).Info("Resolved input files")

	aggOpts := []nessus.Option{nessus.WithLogger(log)}
	if opts.DumpTrees {
		aggOpts = append(aggOpts, nessus.WithTreeDumps(opts.KeepDumps))
	}
	agg := nessus.NewAggregator(fs, aggOpts...)
	defer func() {
		if err := agg.Cleanup(); err != nil {
			log.WithError(err).Warn("Could not remove tree dumps")
		}
	}()

	res := agg.Aggregate(inputs)
	rep.Processed = res.Processed
	rep.Failed = res.Failed
	rep.Records = res.Records

	sink := output.NewSink(fs, opts.Output)
	rep.Workbook = sink.WorkbookPath()
	rep.JSON = sink.JSONPath()

	if len(rep.Records) == 0 {
		log.Warn("No output to process, skipping classification")
		if err := writeOutputs(sink, rep.Records, nil); err != nil {
			return rep, err
		}
	} else {
		errs, err := engine.NewClassifier(opts.Rules).Classify(rep.Records)
		if err != nil {
			if werr := writeOutputs(sink, rep.Records, nil); werr != nil {
				log.WithError(werr).Error("Could not write outputs")
			}
			return rep, errors.Wrap(err, "classification failed")
		}
		rep.Errors = errs
		rep.Classified = true
		if err := writeOutputs(sink, rep.Records, errs); err != nil {
			return rep, err
		}
		log.WithField("errors", len(errs)).Info("Classified findings")
	}

	if opts.Archive {
		path, err := sink.Archive(output.ArchiveName(opts.ArchiveName, opts.InputDir))
		if err != nil {
			return rep, err
		}
		rep.Archive = path
		log.WithField("archive", path).Info("Created archive")
	}

	if opts.Baseline != "" {
		base, err := engine.LoadSnapshot(fs, opts.Baseline)
		if err != nil {
			return rep, err
		}
		diff := engine.CompareSnapshot(rep.Errors, base.Errors)
		rep.Diff = &diff
	}

	if opts.Snapshot != "" {
		snap := engine.Snapshot{CreatedAt: now(), RunID: rep.RunID, Errors: rep.Errors}
		if err := engine.SaveSnapshot(fs, opts.Snapshot, snap); err != nil {
			return rep, err
		}
	}

	if opts.Recorder != nil {
		sum := store.Summary{
			ID:       rep.RunID,
			InputDir: opts.InputDir,
			Files:    len(rep.Processed),
			Failed:   len(rep.Failed),
		}
		if err := opts.Recorder.SaveRun(sum, rep.Records, rep.Errors); err != nil {
			return rep, err
		}
	}

	return rep, nil
}

func writeOutputs(sink *output.Sink, records []engine.FlatRecord, errs []engine.ClassifiedError) error {
	if err := sink.WriteWorkbook(records, errs); err != nil {
		return err
	}
	return sink.WriteJSON(records)
}

// ClassifyExport classifies a JSON export and adds the errors sheet to the
// sink's existing workbook. Input errors are fatal and leave the workbook
// untouched.
func ClassifyExport(fs afero.Fs, exportPath string, outOpts output.Options, rules *engine.RuleSet) ([]engine.ClassifiedError, error) {
	if rules == nil {
		r, err := engine.DefaultRules()
		if err != nil {
			return nil, err
		}
		rules = r
	}
	sink := output.NewSink(fs, outOpts)

	records, err := sink.ReadJSON(exportPath)
	if err != nil {
		return nil, err
	}
	errs, err := engine.NewClassifier(rules).Classify(records)
	if err != nil {
		return nil, err
	}
	if err := sink.AppendErrors(errs); err != nil {
		return nil, err
	}
	return errs, nil
}
