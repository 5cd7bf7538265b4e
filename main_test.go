package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// setupProject writes VERSION with content at baseTime and a trigger
// bin/app.exe whose mtime is offset from it.
func setupProject(t *testing.T, content string, triggerOffset time.Duration) string {
	t.Helper()
	dir := t.TempDir()
	writeFileAt(t, dir, "VERSION", content, baseTime)
	writeFileAt(t, dir, filepath.Join("bin", "app.exe"), "binary", baseTime.Add(triggerOffset))
	return dir
}

func TestCLIBumpWithNewerTrigger(t *testing.T) {
	dir := setupProject(t, "1.4.9", time.Minute)

	res := runCLI(t, dir, "VERSION", "--triggers", filepath.Join("bin", "app.exe"))
	require.Equal(t, 0, res.exitCode, "stderr: %s", res.stderr)
	assert.Empty(t, res.stdout, "a successful bump is silent")
	assert.Empty(t, res.stderr)
	assert.Equal(t, "1.4.10", readFile(t, filepath.Join(dir, "VERSION")))
}

func TestCLITriggersBeforeVersionFile(t *testing.T) {
	dir := setupProject(t, "1.4.9", time.Minute)
	writeFileAt(t, dir, "old.txt", "x", baseTime.Add(-time.Hour))

	res := runCLI(t, dir, "--triggers", "old.txt", "--triggers", filepath.Join("bin", "app.exe"), "VERSION")
	require.Equal(t, 0, res.exitCode, "stderr: %s", res.stderr)
	assert.Equal(t, "1.4.10", readFile(t, filepath.Join(dir, "VERSION")))
}

func TestCLIBumpTwice(t *testing.T) {
	dir := setupProject(t, "0.9.99", time.Minute)
	versionFile := filepath.Join(dir, "VERSION")
	trigger := filepath.Join("bin", "app.exe")

	res := runCLI(t, dir, "VERSION", "--triggers", trigger)
	require.Equal(t, 0, res.exitCode, "stderr: %s", res.stderr)

	// The bump made the version file newer than the trigger; rebuild the trigger.
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, trigger), future, future))

	res = runCLI(t, dir, "VERSION", "--triggers", trigger)
	require.Equal(t, 0, res.exitCode, "stderr: %s", res.stderr)
	assert.Equal(t, "0.9.101", readFile(t, versionFile))
}

func TestCLISecondRunWithoutRebuildIsNoop(t *testing.T) {
	dir := setupProject(t, "1.0.0", time.Minute)
	trigger := filepath.Join("bin", "app.exe")

	res := runCLI(t, dir, "VERSION", "--triggers", trigger)
	require.Equal(t, 0, res.exitCode, "stderr: %s", res.stderr)
	res = runCLI(t, dir, "VERSION", "--triggers", trigger)
	require.Equal(t, 0, res.exitCode, "stderr: %s", res.stderr)

	assert.Equal(t, "1.0.1", readFile(t, filepath.Join(dir, "VERSION")))
}

func TestCLINoTriggersLeavesFileUnchanged(t *testing.T) {
	dir := t.TempDir()
	writeFileAt(t, dir, "VERSION", "2.0.0", baseTime)

	res := runCLI(t, dir, "VERSION")
	assert.Equal(t, 0, res.exitCode)
	assert.Empty(t, res.stdout)
	assert.Equal(t, "2.0.0", readFile(t, filepath.Join(dir, "VERSION")))
}

func TestCLITriggerNotNewer(t *testing.T) {
	for name, offset := range map[string]time.Duration{
		"older": -time.Minute,
		"equal": 0,
	} {
		t.Run(name, func(t *testing.T) {
			dir := setupProject(t, "1.4.9", offset)

			res := runCLI(t, dir, "VERSION", "--triggers", filepath.Join("bin", "app.exe"))
			assert.Equal(t, 0, res.exitCode)
			assert.Equal(t, "1.4.9", readFile(t, filepath.Join(dir, "VERSION")))
		})
	}
}

func TestCLIMissingVersionFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeFileAt(t, dir, "app.exe", "x", baseTime)

	res := runCLI(t, dir, "VERSION", "--triggers", "app.exe")
	assert.Equal(t, 1, res.exitCode)
	assert.Contains(t, res.stderr, "Error:")
	assert.Contains(t, res.stderr, "full path: ")
	assert.Contains(t, res.stderr, "VERSION")

	_, err := os.Stat(filepath.Join(dir, "VERSION"))
	assert.True(t, errors.Is(err, fs.ErrNotExist), "the version file must not be created")
}

func TestCLIMissingTriggerIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeFileAt(t, dir, "VERSION", "1.0.0", baseTime)

	res := runCLI(t, dir, "VERSION", "--triggers", "missing.exe")
	assert.Equal(t, 1, res.exitCode)
	assert.Contains(t, res.stderr, "missing.exe")
	assert.Contains(t, res.stderr, "full path: ")
	assert.NotContains(t, res.stderr, "Usage:")
	assert.Equal(t, "1.0.0", readFile(t, filepath.Join(dir, "VERSION")))
}

func TestCLIMalformedVersionFileIsSkipped(t *testing.T) {
	tests := []struct {
		content    string
		diagnostic string
	}{
		{"1.2", "version file does not contain a value in the format 1.2.3"},
		{"1.2.3.4", "version file does not contain a value in the format 1.2.3"},
		{"1.2.x", "build version number is not an int: `x`"},
		{"a.2.3", "major version number is not an int: `a`"},
		{"1.b.3", "minor version number is not an int: `b`"},
	}

	for _, tc := range tests {
		t.Run(tc.content, func(t *testing.T) {
			dir := setupProject(t, tc.content, time.Minute)

			res := runCLI(t, dir, "VERSION", "--triggers", filepath.Join("bin", "app.exe"))
			assert.Equal(t, 0, res.exitCode, "a malformed version file is not fatal")
			assert.Contains(t, res.stdout, "version update skipped")
			assert.Contains(t, res.stdout, tc.diagnostic)
			assert.Equal(t, tc.content, readFile(t, filepath.Join(dir, "VERSION")))
		})
	}
}

func TestCLIDryRun(t *testing.T) {
	dir := setupProject(t, "1.4.9", time.Minute)

	res := runCLI(t, dir, "VERSION", "--triggers", filepath.Join("bin", "app.exe"), "--dry")
	require.Equal(t, 0, res.exitCode, "stderr: %s", res.stderr)
	assert.Contains(t, res.stdout, "Old Version: 1.4.9")
	assert.Contains(t, res.stdout, "New Version: 1.4.10")
	assert.Contains(t, res.stdout, "Files that would be updated:")
	assert.Equal(t, "1.4.9", readFile(t, filepath.Join(dir, "VERSION")))
}

func TestCLIDryRunWithoutUpdate(t *testing.T) {
	dir := setupProject(t, "1.4.9", -time.Minute)

	res := runCLI(t, dir, "VERSION", "--triggers", filepath.Join("bin", "app.exe"), "--dry")
	require.Equal(t, 0, res.exitCode)
	assert.Contains(t, res.stdout, "would not be updated")
}

func TestCLISummary(t *testing.T) {
	dir := setupProject(t, "3.2.1", time.Minute)
	trigger := filepath.Join("bin", "app.exe")

	res := runCLI(t, dir, "VERSION", "--triggers", trigger, "--summary")
	require.Equal(t, 0, res.exitCode, "stderr: %s", res.stderr)

	var s runSummary
	require.NoError(t, yaml.Unmarshal([]byte(res.stdout), &s), "stdout: %s", res.stdout)
	assert.Equal(t, runSummary{
		VersionFile:  "VERSION",
		Updated:      true,
		OldVersion:   "3.2.1",
		NewVersion:   "3.2.2",
		Trigger:      trigger,
		UpdatedFiles: []string{"VERSION"},
	}, s)
}

func TestCLITriggerGlob(t *testing.T) {
	dir := setupProject(t, "1.0.0", time.Minute)

	res := runCLI(t, dir, "VERSION", "--trigger-glob", "bin/**/*.exe")
	require.Equal(t, 0, res.exitCode, "stderr: %s", res.stderr)
	assert.Equal(t, "1.0.1", readFile(t, filepath.Join(dir, "VERSION")))
}

func TestCLITriggerGlobWithoutMatchIsFatal(t *testing.T) {
	dir := setupProject(t, "1.0.0", time.Minute)

	res := runCLI(t, dir, "VERSION", "--trigger-glob", "dist/*.exe")
	assert.Equal(t, 1, res.exitCode)
	assert.Contains(t, res.stderr, `trigger pattern "dist/*.exe" matched no files`)
	assert.Equal(t, "1.0.0", readFile(t, filepath.Join(dir, "VERSION")))
}

func TestCLIBumpFile(t *testing.T) {
	dir := setupProject(t, "1.4.9", time.Minute)
	writeFileAt(t, dir, "package.json", "{\n  \"name\": \"app\",\n  \"version\": \"1.4.9\"\n}\n", baseTime)

	res := runCLI(t, dir, "VERSION", "--triggers", filepath.Join("bin", "app.exe"), "--bump-file", "package.json", "--bump-file", "missing.toml")
	require.Equal(t, 0, res.exitCode, "stderr: %s", res.stderr)
	assert.Equal(t, "1.4.10", readFile(t, filepath.Join(dir, "VERSION")))
	assert.Equal(t, "{\n  \"name\": \"app\",\n  \"version\": \"1.4.10\"\n}\n", readFile(t, filepath.Join(dir, "package.json")))
	assert.Contains(t, res.stdout, "failed to bump version in file")
	assert.Contains(t, res.stdout, "missing.toml")
}

func TestCLIDebugLoggingJSON(t *testing.T) {
	dir := setupProject(t, "1.4.9", 2*time.Minute)

	res := runCLI(t, dir, "VERSION", "--triggers", filepath.Join("bin", "app.exe"), "--log-level", "debug", "--log-format", "json")
	require.Equal(t, 0, res.exitCode, "stderr: %s", res.stderr)

	var msgs []string
	var lead string
	sc := bufio.NewScanner(strings.NewReader(res.stdout))
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec), "line: %s", sc.Text())
		msgs = append(msgs, rec["msg"].(string))
		if l, ok := rec["lead"].(string); ok {
			lead = l
		}
	}
	assert.Contains(t, msgs, "trigger is newer than version file")
	assert.Contains(t, msgs, "bumped build number")
	assert.Equal(t, "2 minutes newer", lead)
}

func TestRootCmdInProcess(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := setupProject(t, "1.2", time.Minute)
	versionFile := filepath.Join(dir, "VERSION")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{versionFile, "--triggers", filepath.Join(dir, "bin", "app.exe"), "--summary"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "level=WARN")
	assert.Contains(t, out.String(), "version update skipped")
	assert.Contains(t, out.String(), "skipped: ")
	assert.Contains(t, out.String(), "updated: false")
	assert.Equal(t, "1.2", readFile(t, versionFile))
}
