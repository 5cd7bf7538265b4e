package incversion

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrVersionFormat is returned when a version string does not split into
// exactly three dot separated segments.
var ErrVersionFormat = errors.New("version file does not contain a value in the format 1.2.3")

// ErrBuildOverflow is returned when the build number is already the largest
// value a 32-bit signed integer can hold.
var ErrBuildOverflow = errors.New("build version number overflows")

// Version is a major.minor.build triple.
type Version struct {
	Major int32
	Minor int32
	Build int32
}

// SegmentError reports a segment of a version string that is not an integer.
type SegmentError struct {
	Segment string // "major", "minor" or "build"
	Text    string // the offending text
	Err     error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("%s version number is not an int: `%s`", e.Segment, e.Text)
}

func (e *SegmentError) Unwrap() error { return e.Err }

// ParseVersion parses s as "major.minor.build". Each segment must be a signed
// 32-bit decimal integer; whitespace, including a trailing newline, is not
// accepted.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, ErrVersionFormat
	}

	var v Version
	segments := []struct {
		name string
		dst  *int32
	}{
		{"major", &v.Major},
		{"minor", &v.Minor},
		{"build", &v.Build},
	}
	for i, seg := range segments {
		n, err := strconv.ParseInt(parts[i], 10, 32)
		if err != nil {
			return Version{}, &SegmentError{Segment: seg.name, Text: parts[i], Err: err}
		}
		*seg.dst = int32(n)
	}
	return v, nil
}

// String formats the version as "major.minor.build".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
}

// NextBuild returns v with the build number increased by one.
func (v Version) NextBuild() (Version, error) {
	if v.Build == math.MaxInt32 {
		return v, ErrBuildOverflow
	}
	v.Build++
	return v, nil
}

// Canonical returns the canonical semver form of v ("v1.2.3"), or "" when a
// segment is negative and v is therefore not a semantic version.
func (v Version) Canonical() string {
	return semver.Canonical("v" + v.String())
}
