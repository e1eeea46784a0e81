package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Snapshot is the saved set of classified errors of one run, used as a
// baseline for later runs.
type Snapshot struct {
	CreatedAt time.Time         `json:"created_at"`
	RunID     string            `json:"run_id,omitempty"`
	Errors    []ClassifiedError `json:"errors"`
}

// SnapshotDiff compares the errors of the current run against a baseline
type SnapshotDiff struct {
	New       []ClassifiedError
	Fixed     []ClassifiedError
	Unchanged []ClassifiedError
}

// SaveSnapshot writes errors as a JSON snapshot
func SaveSnapshot(fs afero.Fs, path string, snap Snapshot) error {
	if snap.Errors == nil {
		snap.Errors = []ClassifiedError{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode snapshot")
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return errors.Wrapf(ErrOutputWrite, "snapshot %s: %v", path, err)
	}
	return nil
}

// LoadSnapshot reads a snapshot written by SaveSnapshot
func LoadSnapshot(fs afero.Fs, path string) (*Snapshot, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read snapshot %s", path)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrapf(err, "failed to parse snapshot %s", path)
	}
	return &snap, nil
}

func snapshotKey(e ClassifiedError) string {
	return fmt.Sprintf("%s|%d|%s|%s", e.HostAddress, e.Port, e.PluginName, e.Message)
}

// CompareSnapshot splits current and baseline errors into new, fixed and
// unchanged sets. Duplicate keys are reported once, in first-seen order.
func CompareSnapshot(current, baseline []ClassifiedError) SnapshotDiff {
	base := make(map[string]bool, len(baseline))
	for _, e := range baseline {
		base[snapshotKey(e)] = true
	}
	cur := make(map[string]bool, len(current))

	var diff SnapshotDiff
	for _, e := range current {
		k := snapshotKey(e)
		if cur[k] {
			continue
		}
		cur[k] = true
		if base[k] {
			diff.Unchanged = append(diff.Unchanged, e)
		} else {
			diff.New = append(diff.New, e)
		}
	}

	seen := make(map[string]bool, len(baseline))
	for _, e := range baseline {
		k := snapshotKey(e)
		if seen[k] || cur[k] {
			continue
		}
		seen[k] = true
		diff.Fixed = append(diff.Fixed, e)
	}
	return diff
}
