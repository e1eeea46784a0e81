package engine

import (
	"strings"

	"github.com/pkg/errors"
)

// Classifier decides, per record, whether a finding is a credential or
// authentication failure and extracts a readable message for it.
//
// Two signals are evaluated for every record: "Message :" fields in the
// plugin output, and membership of the plugin id in the known-bad set.
// The free-text extractors run only for known-bad plugins and are a
// best-effort heuristic over unstructured output.
type Classifier struct {
	rules *RuleSet
}

// NewClassifier creates a classifier over the given rule set
func NewClassifier(rules *RuleSet) *Classifier {
	return &Classifier{rules: rules}
}

// Rules returns the rule set used by the classifier
func (c *Classifier) Rules() *RuleSet {
	return c.rules
}

// Classify checks every record and returns the classified errors in record
// order. Any invalid record aborts the whole pass and nothing is returned.
func (c *Classifier) Classify(records []FlatRecord) ([]ClassifiedError, error) {
	for i, r := range records {
		if err := validateRecord(r); err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
	}

	errs := make([]ClassifiedError, 0)
	for _, r := range records {
		errs = append(errs, c.ClassifyRecord(r)...)
	}
	return errs, nil
}

// ClassifyRecord returns the errors for a single record: the base error
// first, then one error per extractor match in extractor order.
func (c *Classifier) ClassifyRecord(r FlatRecord) []ClassifiedError {
	fragments := c.rules.Messages(r.OutputText)
	knownBad := c.rules.IsKnownBad(r.PluginID)

	if len(fragments) == 0 && !knownBad {
		return nil
	}

	out := []ClassifiedError{newClassifiedError(r, joinFragments(fragments))}
	if !knownBad {
		return out
	}

	for _, x := range c.rules.Extractors() {
		for _, msg := range x.Match(r.OutputText) {
			out = append(out, newClassifiedError(r, msg))
		}
	}
	return out
}

func joinFragments(fragments []string) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}

func validateRecord(r FlatRecord) error {
	switch {
	case r.HostAddress == "":
		return errors.Wrap(ErrClassificationInput, "missing host address")
	case r.PluginID < 0:
		return errors.Wrapf(ErrClassificationInput, "host %s: invalid plugin id %d", r.HostAddress, r.PluginID)
	case r.Port < 0:
		return errors.Wrapf(ErrClassificationInput, "host %s: negative port %d", r.HostAddress, r.Port)
	}
	return nil
}
