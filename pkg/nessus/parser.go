// Package nessus reads .nessus (NessusClientData_v2) scan reports and
// flattens them into engine.FlatRecord rows.
package nessus

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/clbanning/mxj/v2"
	"github.com/pkg/errors"

	"github.com/user/nessus-authcheck/pkg/engine"
)

// Element and attribute keys of the report tree. Attributes carry mxj's
// default "-" prefix.
const (
	keyRoot       = "NessusClientData_v2"
	keyReport     = "Report"
	keyReportHost = "ReportHost"
	keyReportItem = "ReportItem"
	keyOutput     = "plugin_output"
	keyText       = "#text"

	attrName       = "-name"
	attrPluginID   = "-pluginID"
	attrPluginName = "-pluginName"
	attrPort       = "-port"
	attrService    = "-svc_name"
	attrProtocol   = "-protocol"
)

// Tree is the generic nested form of one report document.
// Elements become maps, repeated elements become lists.
type Tree = mxj.Map

// Parse converts one report document into a generic tree without
// interpreting it. Input that is not well-formed XML is ErrMalformedDocument.
func Parse(data []byte) (Tree, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.Wrap(engine.ErrMalformedDocument, "empty document")
	}
	if err := checkWellFormed(data); err != nil {
		return nil, errors.Wrapf(engine.ErrMalformedDocument, "%v", err)
	}
	m, err := mxj.NewMapXml(data)
	if err != nil {
		return nil, errors.Wrapf(engine.ErrMalformedDocument, "%v", err)
	}
	return m, nil
}

// checkWellFormed requires exactly one root element with nothing but
// whitespace, comments and processing instructions around it. mxj stops
// reading at the end of the first element, so trailing bytes are checked here.
func checkWellFormed(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = mxj.XmlCharsetReader

	depth, roots := 0, 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				roots++
				if roots > 1 {
					return errors.New("more than one root element")
				}
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return errors.New("text outside the root element")
			}
		}
	}
	if roots == 0 {
		return errors.New("no root element")
	}
	return nil
}
