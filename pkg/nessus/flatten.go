package nessus

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/user/nessus-authcheck/pkg/engine"
)

// Flatten walks the report → host → item structure of a parsed tree and
// returns one record per (host, item) pair in document order.
//
// A tree without the root or report containers yields no records. A host or
// item that is not an element, a host without a name, or a port or plugin id
// that is not a non-negative integer is ErrSchemaMismatch for the whole tree.
func Flatten(tree Tree) ([]engine.FlatRecord, error) {
	records := make([]engine.FlatRecord, 0)

	root, ok, err := asMap(tree[keyRoot])
	if err != nil {
		return nil, schemaError("%s: %v", keyRoot, err)
	}
	if !ok {
		return records, nil
	}

	reports, err := asList(root[keyReport])
	if err != nil {
		return nil, schemaError("%s: %v", keyReport, err)
	}

	for ri, rv := range reports {
		report, ok, err := asMap(rv)
		if err != nil {
			return nil, schemaError("%s %d: %v", keyReport, ri, err)
		}
		if !ok {
			continue
		}
		reportName := text(report[attrName])

		hosts, err := asList(report[keyReportHost])
		if err != nil {
			return nil, schemaError("%s %q: %v", keyReport, reportName, err)
		}
		for hi, hv := range hosts {
			host, ok, err := asMap(hv)
			if err != nil || !ok {
				return nil, schemaError("%s %d is not an element", keyReportHost, hi)
			}
			rows, err := flattenHost(reportName, host)
			if err != nil {
				return nil, err
			}
			records = append(records, rows...)
		}
	}
	return records, nil
}

func flattenHost(reportName string, host map[string]interface{}) ([]engine.FlatRecord, error) {
	name := strings.TrimSpace(text(host[attrName]))
	if name == "" {
		return nil, schemaError("%s without a name", keyReportHost)
	}

	items, err := asList(host[keyReportItem])
	if err != nil {
		return nil, schemaError("host %s: %s: %v", name, keyReportItem, err)
	}

	rows := make([]engine.FlatRecord, 0, len(items))
	for i, iv := range items {
		item, ok, err := asMap(iv)
		if err != nil || !ok {
			return nil, schemaError("host %s: %s %d is not an element", name, keyReportItem, i)
		}

		pluginID, err := parseInt(item[attrPluginID])
		if err != nil {
			return nil, schemaError("host %s: %s %d: plugin id: %v", name, keyReportItem, i, err)
		}
		port, err := parseInt(item[attrPort])
		if err != nil {
			return nil, schemaError("host %s: %s %d: port: %v", name, keyReportItem, i, err)
		}

		rows = append(rows, engine.FlatRecord{
			HostAddress: name,
			ReportName:  reportName,
			Port:        port,
			ServiceName: text(item[attrService]),
			Protocol:    text(item[attrProtocol]),
			PluginID:    pluginID,
			PluginName:  text(item[attrPluginName]),
			OutputText:  text(item[keyOutput]),
		})
	}
	return rows, nil
}

func schemaError(format string, args ...interface{}) error {
	return errors.Wrapf(engine.ErrSchemaMismatch, format, args...)
}

// asMap returns v as an element. An absent or empty element reports ok=false.
func asMap(v interface{}) (map[string]interface{}, bool, error) {
	switch t := v.(type) {
	case nil:
		return nil, false, nil
	case map[string]interface{}:
		return t, true, nil
	case Tree:
		return t, true, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, false, nil
		}
	}
	return nil, false, errors.Errorf("expected an element, got %T", v)
}

// asList normalizes a repeated element. A single occurrence is decoded as a
// map rather than a one-element list, so both encodings are accepted.
func asList(v interface{}) ([]interface{}, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		return t, nil
	case map[string]interface{}, Tree:
		return []interface{}{t}, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
	}
	return nil, errors.Errorf("expected one or more elements, got %T", v)
}

// text returns the character data of a leaf value
func text(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]interface{}:
		return text(t[keyText])
	case Tree:
		return text(t[keyText])
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, text(p))
		}
		return strings.Join(parts, "\n")
	default:
		return fmt.Sprint(t)
	}
}

func parseInt(v interface{}) (int, error) {
	s := strings.TrimSpace(text(v))
	if s == "" {
		return 0, errors.New("missing value")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Errorf("%q is not an integer", s)
	}
	if n < 0 {
		return 0, errors.Errorf("%q is negative", s)
	}
	return n, nil
}
