// Package main implements the incversion CLI tool.
//
// The incversion tool increases the build number of a version file holding a
// single "major.minor.build" value (e.g. "1.4.9" becomes "1.4.10"), but only
// when one of the given trigger files was modified more recently than the
// version file. Pointing the trigger at a build artifact makes a build script
// bump the version after a fresh build and leave it alone on no-op builds.
//
// Command Usage:
//
//	incversion <version_file> [--triggers <path>]... [flags]
//
// Flags:
//
//	--triggers:     A trigger file. May be repeated. Without any trigger the
//	                version file is never updated.
//	--trigger-glob: A doublestar pattern (e.g. "dist/**/*.exe") expanding to
//	                trigger files. A pattern matching nothing is an error.
//	--bump-file:    An additional file whose main version (package.json "version",
//	                Cargo.toml [package] version, VERSION=..., <version>) is
//	                replaced with the new version after a bump. May be repeated.
//	--dry:          Evaluate the triggers and print the would-be bump without
//	                modifying any file.
//	--summary:      Print the result as a YAML document on stdout.
//	--log-level:    debug, info, warn or error (default info).
//	--log-format:   text or json (default text).
//	--version:      Displays the version of the incversion CLI tool and exits.
//
// Exit status:
//
// A missing version file argument, a version file or trigger that cannot be
// stat'ed, and a failed write of the version file exit with status 1. A version
// file that cannot be read, or that does not hold three integer segments, is
// reported on stdout and left untouched, and the tool exits with status 0.
// A successful bump prints nothing.
//
// Examples:
//
//	# Bump after the exe was rebuilt (1.4.9 → 1.4.10)
//	incversion VERSION --triggers bin/app.exe
//
//	# Any of several artifacts may trigger the bump
//	incversion VERSION --triggers bin/app.exe --triggers bin/app.dll
//
//	# Keep package.json in sync with the version file
//	incversion VERSION --trigger-glob 'dist/**/*.exe' --bump-file package.json
//
// For the library API, see the "pkg" package.
package main
