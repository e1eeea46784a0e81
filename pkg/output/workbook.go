// Package output persists flattened records and classified errors as a
// workbook, a JSON export and an optional zip bundle.
package output

import (
	"bytes"
	"path/filepath"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	"github.com/user/nessus-authcheck/pkg/engine"
)

// Default artifact names
const (
	DefaultWorkbook     = "output_combined.xlsx"
	DefaultJSONExport   = "params.json"
	DefaultRecordsSheet = "Findings"
	DefaultErrorsSheet  = "Errors"
)

// RecordColumns is the header row of the records sheet
var RecordColumns = []string{"IP", "Report Name", "Port", "Service", "Protocol", "Plugin ID", "Plugin Name", "Output"}

// ErrorColumns is the header row of the errors sheet
var ErrorColumns = []string{"IP", "Report Name", "Port", "Service", "Plugin", "Message", "Output"}

// Options names the artifacts written by a Sink
type Options struct {
	Dir          string
	Workbook     string
	JSONExport   string
	RecordsSheet string
	ErrorsSheet  string
}

func (o *Options) setDefaults() {
	if o.Dir == "" {
		o.Dir = "."
	}
	if o.Workbook == "" {
		o.Workbook = DefaultWorkbook
	}
	if o.JSONExport == "" {
		o.JSONExport = DefaultJSONExport
	}
	if o.RecordsSheet == "" {
		o.RecordsSheet = DefaultRecordsSheet
	}
	if o.ErrorsSheet == "" {
		o.ErrorsSheet = DefaultErrorsSheet
	}
}

// Sink writes output artifacts through a file-system provider
type Sink struct {
	fs   afero.Fs
	opts Options
}

// NewSink creates a sink writing into opts.Dir
func NewSink(fs afero.Fs, opts Options) *Sink {
	opts.setDefaults()
	return &Sink{fs: fs, opts: opts}
}

// WorkbookPath returns the path of the combined workbook
func (s *Sink) WorkbookPath() string {
	return filepath.Join(s.opts.Dir, s.opts.Workbook)
}

// JSONPath returns the path of the JSON export
func (s *Sink) JSONPath() string {
	return filepath.Join(s.opts.Dir, s.opts.JSONExport)
}

// WriteWorkbook writes the records sheet and, when errs is non-nil, the
// errors sheet into a new workbook, replacing any existing file.
func (s *Sink) WriteWorkbook(records []engine.FlatRecord, errs []engine.ClassifiedError) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", s.opts.RecordsSheet); err != nil {
		return errors.Wrap(err, "failed to name records sheet")
	}
	if err := writeRecordsSheet(f, s.opts.RecordsSheet, records); err != nil {
		return err
	}
	if errs != nil {
		if err := writeErrorsSheet(f, s.opts.ErrorsSheet, errs); err != nil {
			return err
		}
	}
	return s.save(f)
}

// AppendErrors adds the errors sheet to the existing workbook, replacing a
// previous errors sheet if there is one.
func (s *Sink) AppendErrors(errs []engine.ClassifiedError) error {
	data, err := afero.ReadFile(s.fs, s.WorkbookPath())
	if err != nil {
		return errors.Wrapf(err, "failed to read workbook %s", s.WorkbookPath())
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return errors.Wrapf(err, "failed to open workbook %s", s.WorkbookPath())
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(s.opts.ErrorsSheet)
	if err != nil {
		return errors.Wrap(err, "failed to look up errors sheet")
	}
	if idx != -1 {
		if err := f.DeleteSheet(s.opts.ErrorsSheet); err != nil {
			return errors.Wrap(err, "failed to replace errors sheet")
		}
	}
	if err := writeErrorsSheet(f, s.opts.ErrorsSheet, errs); err != nil {
		return err
	}
	return s.save(f)
}

func (s *Sink) save(f *excelize.File) error {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return errors.Wrapf(engine.ErrOutputWrite, "workbook: %v", err)
	}
	if err := s.writeFile(s.WorkbookPath(), buf.Bytes()); err != nil {
		return err
	}
	return nil
}

func (s *Sink) writeFile(path string, data []byte) error {
	if err := s.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(engine.ErrOutputWrite, "%s: %v", path, err)
	}
	if err := afero.WriteFile(s.fs, path, data, 0644); err != nil {
		return errors.Wrapf(engine.ErrOutputWrite, "%s: %v", path, err)
	}
	return nil
}

func writeRecordsSheet(f *excelize.File, sheet string, records []engine.FlatRecord) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return errors.Wrap(err, "failed to open records sheet")
	}
	if err := sw.SetRow("A1", header(RecordColumns)); err != nil {
		return errors.Wrap(err, "failed to write records header")
	}
	for i, r := range records {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			cellText(r.HostAddress),
			cellText(r.ReportName),
			r.Port,
			cellText(r.ServiceName),
			cellText(r.Protocol),
			r.PluginID,
			cellText(r.PluginName),
			cellText(r.OutputText),
		}
		if err := sw.SetRow(cell, row); err != nil {
			return errors.Wrapf(err, "failed to write record row %d", i+2)
		}
	}
	return sw.Flush()
}

func writeErrorsSheet(f *excelize.File, sheet string, errs []engine.ClassifiedError) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.Wrap(err, "failed to create errors sheet")
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return errors.Wrap(err, "failed to open errors sheet")
	}
	if err := sw.SetRow("A1", header(ErrorColumns)); err != nil {
		return errors.Wrap(err, "failed to write errors header")
	}
	for i, e := range errs {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			cellText(e.HostAddress),
			cellText(e.ReportName),
			e.Port,
			cellText(e.ServiceName),
			cellText(e.PluginName),
			cellText(e.Message),
			cellText(e.OutputText),
		}
		if err := sw.SetRow(cell, row); err != nil {
			return errors.Wrapf(err, "failed to write error row %d", i+2)
		}
	}
	return sw.Flush()
}

func header(cols []string) []interface{} {
	row := make([]interface{}, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	return row
}

// cellText truncates s to the character limit of a spreadsheet cell
func cellText(s string) string {
	if utf8.RuneCountInString(s) <= excelize.TotalCellChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:excelize.TotalCellChars])
}
