package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/user/nessus-authcheck/pkg/engine"
)

var sampleRecords = []engine.FlatRecord{
	{HostAddress: "10.0.0.1", ReportName: "scan", Port: 445, ServiceName: "cifs", Protocol: "tcp", PluginID: 24786, PluginName: "Admin", OutputText: "Message : denied"},
	{HostAddress: "10.0.0.2", ReportName: "scan", Port: 0, ServiceName: "general", Protocol: "tcp", PluginID: 19506, PluginName: "Info", OutputText: ""},
}

var sampleErrors = []engine.ClassifiedError{
	{HostAddress: "10.0.0.1", ReportName: "scan", Port: 445, ServiceName: "cifs", PluginName: "Admin", Message: "denied", OutputText: "Message : denied"},
}

func openWorkbook(t *testing.T, fs afero.Fs, path string) *excelize.File {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestWriteWorkbook(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := NewSink(fs, Options{Dir: "/out"})

	require.NoError(t, sink.WriteWorkbook(sampleRecords, sampleErrors))
	assert.Equal(t, "/out/output_combined.xlsx", sink.WorkbookPath())

	f := openWorkbook(t, fs, sink.WorkbookPath())
	assert.Equal(t, []string{DefaultRecordsSheet, DefaultErrorsSheet}, f.GetSheetList())

	rows, err := f.GetRows(DefaultRecordsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, RecordColumns, rows[0])
	assert.Equal(t, []string{"10.0.0.1", "scan", "445", "cifs", "tcp", "24786", "Admin", "Message : denied"}, rows[1])
	assert.Equal(t, "10.0.0.2", rows[2][0])

	errRows, err := f.GetRows(DefaultErrorsSheet)
	require.NoError(t, err)
	require.Len(t, errRows, 2)
	assert.Equal(t, ErrorColumns, errRows[0])
	assert.Equal(t, "denied", errRows[1][5])
}

func TestWriteWorkbookWithoutErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := NewSink(fs, Options{Dir: "/out"})

	require.NoError(t, sink.WriteWorkbook(nil, nil))

	f := openWorkbook(t, fs, sink.WorkbookPath())
	assert.Equal(t, []string{DefaultRecordsSheet}, f.GetSheetList())
	rows, err := f.GetRows(DefaultRecordsSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{RecordColumns}, rows)
}

func TestWriteWorkbookEmptyErrorsSheet(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := NewSink(fs, Options{Dir: "/out"})

	require.NoError(t, sink.WriteWorkbook(sampleRecords, []engine.ClassifiedError{}))

	f := openWorkbook(t, fs, sink.WorkbookPath())
	rows, err := f.GetRows(DefaultErrorsSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{ErrorColumns}, rows)
}

func TestAppendErrorsReplacesSheet(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := NewSink(fs, Options{Dir: "/out", ErrorsSheet: "Auth"})

	require.NoError(t, sink.WriteWorkbook(sampleRecords, nil))
	require.NoError(t, sink.AppendErrors(sampleErrors))
	require.NoError(t, sink.AppendErrors(sampleErrors))

	f := openWorkbook(t, fs, sink.WorkbookPath())
	assert.Equal(t, []string{DefaultRecordsSheet, "Auth"}, f.GetSheetList())

	rows, err := f.GetRows("Auth")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	records, err := f.GetRows(DefaultRecordsSheet)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestAppendErrorsMissingWorkbook(t *testing.T) {
	sink := NewSink(afero.NewMemMapFs(), Options{Dir: "/out"})
	assert.Error(t, sink.AppendErrors(sampleErrors))
}

func TestWriteWorkbookReadOnly(t *testing.T) {
	sink := NewSink(afero.NewReadOnlyFs(afero.NewMemMapFs()), Options{Dir: "/out"})
	assert.ErrorIs(t, sink.WriteWorkbook(sampleRecords, nil), engine.ErrOutputWrite)
}

func TestCellTextTruncates(t *testing.T) {
	long := strings.Repeat("é", excelize.TotalCellChars+10)
	assert.Equal(t, excelize.TotalCellChars, len([]rune(cellText(long))))
	assert.Equal(t, "short", cellText("short"))
}
