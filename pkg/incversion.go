package incversion

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"unicode/utf8"
)

// ErrSkipped is matched (via errors.Is) by every error that skips the update
// without modifying anything: an unreadable or malformed version file.
var ErrSkipped = errors.New("version update skipped")

var errInvalidUTF8 = errors.New("stream did not contain valid UTF-8")

// SkipError reports why a version file was left untouched.
type SkipError struct {
	Path    string
	AbsPath string
	Err     error
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("%v (full path: %s)", e.Err, e.AbsPath)
}

func (e *SkipError) Unwrap() error { return e.Err }

// Is makes every SkipError match ErrSkipped.
func (e *SkipError) Is(target error) bool { return target == ErrSkipped }

// WriteError reports a failure to overwrite the version file. It is fatal.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("could not write version file %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// VersionMeta holds metadata about the version bump operation.
type VersionMeta struct {
	OldVersion   string   // The version before bumping.
	NewVersion   string   // The version after bumping.
	BumpType     string   // "build" when the build number was (or would be) increased.
	Trigger      string   // The first trigger found newer than the version file.
	Updated      bool     // Whether the version file was written (or would be, in a dry run).
	DryRun       bool     // Whether nothing was written.
	UpdatedFiles []string // Paths of all files written (or that would be written).
}

func skip(path string, err error) error {
	return &SkipError{Path: path, AbsPath: absPath(path), Err: err}
}

// readCurrentVersion reads and parses the version file. Every failure is
// returned as a *SkipError.
func readCurrentVersion(path string) (Version, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Version{}, skip(path, err)
	}
	if !utf8.Valid(data) {
		return Version{}, skip(path, errInvalidUTF8)
	}
	v, err := ParseVersion(string(data))
	if err != nil {
		return Version{}, skip(path, err)
	}
	return v, nil
}

// writeVersionFile overwrites path with v. There is no temp-file staging.
func writeVersionFile(path string, v Version) error {
	if err := os.WriteFile(path, []byte(v.String()), 0644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

func bump(path string, dryRun bool) (VersionMeta, Version, Version, error) {
	meta := VersionMeta{DryRun: dryRun}

	current, err := readCurrentVersion(path)
	if err != nil {
		return meta, current, current, err
	}
	meta.OldVersion = current.String()

	next, err := current.NextBuild()
	if err != nil {
		return meta, current, next, skip(path, err)
	}
	meta.NewVersion = next.String()
	meta.BumpType = "build"

	if !dryRun {
		if err := writeVersionFile(path, next); err != nil {
			return meta, current, next, err
		}
	}
	meta.Updated = true
	meta.UpdatedFiles = []string{path}
	return meta, current, next, nil
}

// Bump unconditionally increases the build number in the version file at path.
// A file that cannot be read or parsed is left untouched and an error matching
// ErrSkipped is returned; a failed write returns a *WriteError.
func Bump(path string) (VersionMeta, error) {
	meta, _, _, err := bump(path, false)
	return meta, err
}

// Run bumps the build number of the version file when any trigger was modified
// more recently than it, then syncs the new version into each bump file.
// With no triggers, the version file is left unchanged.
//
// Stat failures (*StatError) and write failures (*WriteError) are fatal.
// Errors matching ErrSkipped mean the version file was unreadable or malformed
// and nothing was modified. Failures to update a bump file are only logged.
func Run(versionFilePath string, triggers []string, bumpFiles []string) (VersionMeta, error) {
	return run(versionFilePath, triggers, bumpFiles, false)
}

// DryRun evaluates the triggers and computes the new version exactly like Run,
// without writing any file. UpdatedFiles lists the files Run would write.
func DryRun(versionFilePath string, triggers []string, bumpFiles []string) (VersionMeta, error) {
	return run(versionFilePath, triggers, bumpFiles, true)
}

func run(versionFilePath string, triggers, bumpFiles []string, dryRun bool) (VersionMeta, error) {
	meta := VersionMeta{DryRun: dryRun}

	// 1. Compare modification times
	decision, err := EvaluateTriggers(versionFilePath, triggers)
	if err != nil {
		return meta, err
	}
	if !decision.Update {
		slog.Debug("no trigger is newer than the version file",
			"path", versionFilePath, "triggers", decision.Checked)
		return meta, nil
	}

	// 2. Bump the version file
	meta, old, next, err := bump(versionFilePath, dryRun)
	meta.Trigger = decision.Trigger
	if err != nil {
		return meta, err
	}
	slog.Debug("bumped build number",
		"path", versionFilePath,
		"old", meta.OldVersion,
		"new", meta.NewVersion,
		"trigger", decision.Trigger)

	// 3. Sync bump files
	for _, bf := range bumpFiles {
		if syncBumpFile(bf, old, next, dryRun) {
			meta.UpdatedFiles = append(meta.UpdatedFiles, bf)
		}
	}

	return meta, nil
}

// syncBumpFile replaces the main version of a bump file with next and reports
// whether the file was (or, in a dry run, would be) updated. Failures are
// logged and never returned.
func syncBumpFile(path string, old, next Version, dryRun bool) bool {
	match, err := FindMainVersionInFile(path)
	if err != nil {
		slog.Warn("failed to bump version in file", "path", path, "err", err)
		return false
	}
	if match == nil {
		slog.Warn("no version found in file", "path", path)
		return false
	}
	if err := checkBumpFileVersion(*match, old, next); err != nil {
		slog.Warn("version in file left unchanged", "path", path, "err", err)
		return false
	}
	if dryRun {
		return true
	}
	if err := ReplaceVersionInFile(path, next.String(), *match); err != nil {
		slog.Warn("failed to bump version in file", "path", path, "err", err)
		return false
	}
	return true
}
