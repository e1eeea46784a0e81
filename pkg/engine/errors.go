package engine

import "github.com/pkg/errors"

// Sentinel errors for the pipeline failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrMalformedDocument indicates the input is not well-formed XML.
	// Recovered per file by the aggregator.
	ErrMalformedDocument = errors.New("authcheck: malformed document")

	// ErrSchemaMismatch indicates the document parsed but does not have the
	// report/host/finding shape, or a required field failed conversion.
	// Recovered per file by the aggregator.
	ErrSchemaMismatch = errors.New("authcheck: schema mismatch")

	// ErrClassificationInput indicates the records fed to the classifier are
	// missing a required field. Fatal for the classification pass.
	ErrClassificationInput = errors.New("authcheck: invalid classification input")

	// ErrOutputWrite indicates a workbook, JSON, archive or database write failed.
	ErrOutputWrite = errors.New("authcheck: output write failed")
)
