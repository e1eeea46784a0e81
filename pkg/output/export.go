package output

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/user/nessus-authcheck/pkg/engine"
)

// requiredKeys must be present in every exported record fed to the classifier
var requiredKeys = []string{"IP", "Port", "Service", "Plugin ID", "Plugin Name", "Output"}

// WriteJSON writes the records as the JSON export
func (s *Sink) WriteJSON(records []engine.FlatRecord) error {
	data, err := EncodeRecords(records)
	if err != nil {
		return err
	}
	return s.writeFile(s.JSONPath(), data)
}

// ReadJSON decodes a JSON export from the sink's file system
func (s *Sink) ReadJSON(path string) ([]engine.FlatRecord, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()
	return DecodeRecords(f)
}

// EncodeRecords renders records as an indented JSON array. Absent values are
// empty strings, never null.
func EncodeRecords(records []engine.FlatRecord) ([]byte, error) {
	if records == nil {
		records = []engine.FlatRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, errors.Wrap(err, "failed to encode records")
	}
	return buf.Bytes(), nil
}

// DecodeRecords reads a JSON export. A record missing a required key, or
// with a non-numeric port or plugin id, is ErrClassificationInput.
func DecodeRecords(r io.Reader) ([]engine.FlatRecord, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var rows []map[string]interface{}
	if err := dec.Decode(&rows); err != nil {
		return nil, errors.Wrapf(engine.ErrClassificationInput, "invalid JSON export: %v", err)
	}

	records := make([]engine.FlatRecord, 0, len(rows))
	for i, row := range rows {
		for _, k := range requiredKeys {
			if _, ok := row[k]; !ok {
				return nil, errors.Wrapf(engine.ErrClassificationInput, "record %d: missing %q", i, k)
			}
		}
		port, err := number(row["Port"])
		if err != nil {
			return nil, errors.Wrapf(engine.ErrClassificationInput, "record %d: Port: %v", i, err)
		}
		pluginID, err := number(row["Plugin ID"])
		if err != nil {
			return nil, errors.Wrapf(engine.ErrClassificationInput, "record %d: Plugin ID: %v", i, err)
		}
		records = append(records, engine.FlatRecord{
			HostAddress: str(row["IP"]),
			ReportName:  str(row["Report Name"]),
			Port:        port,
			ServiceName: str(row["Service"]),
			Protocol:    str(row["Protocol"]),
			PluginID:    pluginID,
			PluginName:  str(row["Plugin Name"]),
			OutputText:  str(row["Output"]),
		})
	}
	return records, nil
}

func number(v interface{}) (int, error) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, errors.Errorf("%q is not an integer", t.String())
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, errors.Errorf("%q is not an integer", t)
		}
		return n, nil
	}
	return 0, errors.Errorf("unexpected value %v", v)
}

func str(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}
