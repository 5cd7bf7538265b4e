// Package main implements a CLI tool that increases the build number of a
// version file when a trigger file is newer than it.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	incversion "github.com/bcomnes/incversion/pkg"
)

const longHelp = `Increases the build number of a semantic version file (major.minor.build).

If trigger files are specified, the version only gets increased when a trigger file
is more recent than the version file. E.g., if you specify an exe file as a trigger,
the version only gets increased after the exe was successfully built. Without any
trigger the version file is left unchanged.

An unreadable or malformed version file is reported and skipped with exit status 0.
A missing trigger, a missing version file or a failed write exits with status 1.`

const examples = `  incversion VERSION --triggers bin/app.exe
  incversion VERSION --triggers bin/app.exe --triggers bin/app.dll
  incversion VERSION --trigger-glob 'dist/**/*.exe' --bump-file package.json
  incversion VERSION --triggers bin/app.exe --dry`

var errMissingVersionFile = errors.New("provide a version file path. Use option --help for more info")

type cliOptions struct {
	triggers     []string
	triggerGlobs []string
	bumpFiles    []string
	dryRun       bool
	summary      bool
	logLevel     string
	logFormat    string
}

// runSummary is the --summary document.
type runSummary struct {
	VersionFile  string   `yaml:"version_file"`
	Updated      bool     `yaml:"updated"`
	DryRun       bool     `yaml:"dry_run"`
	OldVersion   string   `yaml:"old_version,omitempty"`
	NewVersion   string   `yaml:"new_version,omitempty"`
	Trigger      string   `yaml:"trigger,omitempty"`
	Skipped      string   `yaml:"skipped,omitempty"`
	UpdatedFiles []string `yaml:"updated_files,omitempty"`
}

func bindFlags(flags *pflag.FlagSet, opts *cliOptions) {
	flags.StringArrayVar(&opts.triggers, "triggers", nil, "Trigger file; the version is bumped only if a trigger is newer than the version file. May be repeated.")
	flags.StringArrayVar(&opts.triggerGlobs, "trigger-glob", nil, "Glob pattern (** supported) of trigger files. Must match at least one file. May be repeated.")
	flags.StringArrayVar(&opts.bumpFiles, "bump-file", nil, "Additional file whose main version is replaced with the new version. May be repeated.")
	flags.BoolVar(&opts.dryRun, "dry", false, "Perform a dry run without modifying any files")
	flags.BoolVar(&opts.summary, "summary", false, "Print the result as YAML")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: "+logLevelNames())
	flags.StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")
}

func versionFileArg(cmd *cobra.Command, args []string) error {
	switch len(args) {
	case 0:
		return errMissingVersionFile
	case 1:
		return nil
	default:
		return fmt.Errorf("expected a single version file, got %d arguments: %v", len(args), args)
	}
}

func newRootCmd() *cobra.Command {
	var opts cliOptions
	cmd := &cobra.Command{
		Use:           "incversion <version_file>",
		Short:         "Increase the build number of a version file",
		Long:          longHelp,
		Example:       examples,
		Version:       Version,
		Args:          versionFileArg,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Arguments are valid past this point; don't print usage on failure.
			cmd.SilenceUsage = true
			return run(cmd.OutOrStdout(), args[0], opts)
		},
	}
	bindFlags(cmd.Flags(), &opts)
	return cmd
}

func run(stdout io.Writer, versionFile string, opts cliOptions) error {
	if err := setupLogging(LogOptions{Level: opts.logLevel, Format: opts.logFormat, Output: stdout}); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	triggers := slices.Clone(opts.triggers)
	if len(opts.triggerGlobs) > 0 {
		matched, err := incversion.ExpandTriggerGlobs(opts.triggerGlobs)
		if err != nil {
			return err
		}
		triggers = append(triggers, matched...)
	}

	var meta incversion.VersionMeta
	var err error
	if opts.dryRun {
		meta, err = incversion.DryRun(versionFile, triggers, opts.bumpFiles)
	} else {
		meta, err = incversion.Run(versionFile, triggers, opts.bumpFiles)
	}

	var skipped error
	if err != nil {
		if !errors.Is(err, incversion.ErrSkipped) {
			return err
		}
		slog.Warn("version update skipped", "reason", err)
		skipped = err
	}

	if opts.dryRun {
		printDryRun(stdout, meta)
	}
	if opts.summary {
		return writeSummary(stdout, versionFile, meta, skipped)
	}
	return nil
}

func printDryRun(w io.Writer, meta incversion.VersionMeta) {
	if !meta.Updated {
		fmt.Fprintln(w, "Dry run complete: the version file would not be updated.")
		return
	}
	fmt.Fprintln(w, "Dry run complete: no files were modified.")
	fmt.Fprintf(w, "Old Version: %s\n", meta.OldVersion)
	fmt.Fprintf(w, "New Version: %s\n", meta.NewVersion)
	fmt.Fprintf(w, "Trigger:     %s\n", meta.Trigger)
	fmt.Fprintln(w, "Files that would be updated:")
	for _, f := range meta.UpdatedFiles {
		fmt.Fprintf(w, "  %s\n", f)
	}
}

func writeSummary(w io.Writer, versionFile string, meta incversion.VersionMeta, skipped error) error {
	s := runSummary{
		VersionFile:  versionFile,
		Updated:      meta.Updated,
		DryRun:       meta.DryRun,
		OldVersion:   meta.OldVersion,
		NewVersion:   meta.NewVersion,
		Trigger:      meta.Trigger,
		UpdatedFiles: meta.UpdatedFiles,
	}
	if skipped != nil {
		s.Skipped = skipped.Error()
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return enc.Close()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
