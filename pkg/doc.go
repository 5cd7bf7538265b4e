// Package incversion provides a library for conditionally increasing the build
// number of a version file.
//
// A version file holds exactly one "major.minor.build" value, for example
// "1.4.9", with no surrounding whitespace. The library provides functionalities for:
//   - Comparing the modification time of one or more trigger files (typically
//     build artifacts) with the modification time of the version file.
//   - Parsing, incrementing and rewriting the build number when a trigger is newer.
//   - Syncing the new version into additional files such as package.json or Cargo.toml.
//
// Errors come in two tiers. Failures to stat the version file or a trigger, and
// failures to write the version file, are returned as *StatError and *WriteError
// and are meant to abort the caller. A version file that cannot be read or does
// not hold a valid version yields an error matching ErrSkipped: the update is
// skipped and nothing is modified.
//
// Usage Example:
//
//	import (
//	    "log"
//	    "github.com/bcomnes/incversion/pkg"
//	)
//
//	func main() {
//	    // Bump the build number when app.exe is newer than VERSION.
//	    meta, err := incversion.Run("VERSION", []string{"bin/app.exe"}, nil)
//	    if err != nil {
//	        log.Fatalf("version bump failed: %v", err)
//	    }
//	    if meta.Updated {
//	        log.Printf("bumped %s to %s", meta.OldVersion, meta.NewVersion)
//	    }
//	}
//
// For the command line tool, see the main package at the module root.
package incversion
