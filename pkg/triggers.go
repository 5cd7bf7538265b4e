package incversion

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
)

// StatError reports a version or trigger file whose modification time could
// not be read. It is fatal: a missing file is a misconfiguration.
type StatError struct {
	Path    string
	AbsPath string
	Err     error
}

func (e *StatError) Error() string {
	return fmt.Sprintf("%v (full path: %s)", e.Err, e.AbsPath)
}

func (e *StatError) Unwrap() error { return e.Err }

// Decision is the outcome of comparing trigger files with a version file.
type Decision struct {
	Update         bool      // a trigger is strictly newer than the version file
	VersionModTime time.Time // modification time of the version file
	Trigger        string    // first trigger found newer, if any
	TriggerModTime time.Time
	Checked        int // number of triggers stat'ed
}

// absPath returns the absolute form of path, or path itself if it cannot be resolved.
func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// ModTime returns the last modification time of path.
func ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, &StatError{Path: path, AbsPath: absPath(path), Err: err}
	}
	return info.ModTime(), nil
}

// EvaluateTriggers stats the version file and then each trigger in order,
// stopping at the first trigger that is strictly newer than the version file.
// With no triggers the decision is never to update, but the version file is
// still stat'ed.
func EvaluateTriggers(versionFilePath string, triggers []string) (Decision, error) {
	var d Decision

	versionTime, err := ModTime(versionFilePath)
	if err != nil {
		return d, err
	}
	d.VersionModTime = versionTime

	for _, trigger := range triggers {
		t, err := ModTime(trigger)
		if err != nil {
			return d, err
		}
		d.Checked++
		if t.After(versionTime) {
			slog.Debug("trigger is newer than version file",
				"trigger", trigger,
				"lead", humanize.RelTime(versionTime, t, "newer", "older"))
			d.Update = true
			d.Trigger = trigger
			d.TriggerModTime = t
			return d, nil
		}
		slog.Debug("trigger is not newer than version file", "trigger", trigger)
	}
	return d, nil
}

// ShouldUpdate reports whether any trigger was modified more recently than the
// version file.
func ShouldUpdate(versionFilePath string, triggers []string) (bool, error) {
	d, err := EvaluateTriggers(versionFilePath, triggers)
	if err != nil {
		return false, err
	}
	return d.Update, nil
}

// ExpandTriggerGlobs expands doublestar patterns (e.g. "dist/**/*.exe") into
// file paths, in pattern order. A malformed pattern, or one that matches no
// files, is an error.
func ExpandTriggerGlobs(patterns []string) ([]string, error) {
	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid trigger pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("trigger pattern %q matched no files", pattern)
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}
