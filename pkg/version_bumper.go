package incversion

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// versionPattern locates a version string within a single line. Group 1 is the
// text before the version, group 2 an optional "v" prefix, group 3 the version.
type versionPattern struct {
	re   *regexp.Regexp
	name string
	toml bool // only applies at the top level or in a main TOML table
	json bool // only applies to keys of the outermost JSON object
}

const versionExpr = `(v?)(\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?)`

// mainVersionPatterns match declarations that usually hold a project's own
// version rather than a dependency version.
var mainVersionPatterns = []versionPattern{
	{re: regexp.MustCompile(`^(\s*"version"\s*:\s*")` + versionExpr + `"`), name: "JSON version field", json: true},
	{re: regexp.MustCompile(`^(\s*version\s*=\s*")` + versionExpr + `"`), name: "TOML version field", toml: true},
	{re: regexp.MustCompile(`^(\s*(?:export\s+)?VERSION\s*(?:[:?]?=|:)\s*["']?)` + versionExpr), name: "VERSION assignment"},
	{re: regexp.MustCompile(`^(\s*<version>)` + versionExpr + `</version>`), name: "XML version tag"},
}

// fallbackVersionPattern matches the first version-like string on a line.
var fallbackVersionPattern = versionPattern{
	re:   regexp.MustCompile(`()` + versionExpr),
	name: "first version",
}

// tomlTable matches a TOML table header such as [package] or [dependencies.foo].
var tomlTable = regexp.MustCompile(`^\s*\[+\s*([^\]]+?)\s*\]+\s*$`)

// mainTOMLTables are the tables whose version key is the project version.
var mainTOMLTables = map[string]bool{
	"":                  true,
	"package":           true,
	"project":           true,
	"tool.poetry":       true,
	"workspace.package": true,
}

// VersionMatch is a version found in a file.
type VersionMatch struct {
	Line     int    // 1-based line number
	Start    int    // byte offset of the version within the line, after any "v" prefix
	End      int    // byte offset just past the version
	Version  string // the version, without "v" prefix
	Prefixed bool   // whether the version was written with a "v" prefix
	Pattern  string // name of the pattern that matched
}

func matchLine(vp versionPattern, line string, lineNum int) *VersionMatch {
	m := vp.re.FindStringSubmatchIndex(line)
	if m == nil {
		return nil
	}
	return &VersionMatch{
		Line:     lineNum + 1,
		Start:    m[6],
		End:      m[7],
		Version:  line[m[6]:m[7]],
		Prefixed: m[5] > m[4],
		Pattern:  vp.name,
	}
}

// FindMainVersionInFile searches for the primary version field in a file:
// a top-level "version" in JSON, the version of the package table in TOML, a
// VERSION assignment, or a <version> tag. When none of those is present, the
// first version-like string in the file is returned. It returns nil if the file
// holds no version at all.
func FindMainVersionInFile(filePath string) (*VersionMatch, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", filePath, err)
	}
	lines := strings.Split(string(data), "\n")

	table := ""
	depth := 0
	for lineNum, line := range lines {
		lineDepth := depth
		depth += braceDelta(line)
		if m := tomlTable.FindStringSubmatch(line); m != nil {
			table = m[1]
			continue
		}
		for _, vp := range mainVersionPatterns {
			if vp.toml && !mainTOMLTables[table] {
				continue
			}
			if vp.json && lineDepth != 1 {
				continue
			}
			if vm := matchLine(vp, line, lineNum); vm != nil {
				return vm, nil
			}
		}
	}

	for lineNum, line := range lines {
		if vm := matchLine(fallbackVersionPattern, line, lineNum); vm != nil {
			return vm, nil
		}
	}
	return nil, nil
}

// braceDelta returns the change in object nesting depth over line, ignoring
// braces inside double-quoted strings.
func braceDelta(line string) int {
	delta := 0
	inString := false
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case inString && c == '\\':
			i++
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			delta++
		case c == '}':
			delta--
		}
	}
	return delta
}

// ReplaceVersionInFile replaces the version described by match with newVersion.
// A "v" prefix in the file is kept as it is.
func ReplaceVersionInFile(filePath, newVersion string, match VersionMatch) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading file %s: %w", filePath, err)
	}

	lines := strings.Split(string(data), "\n")
	if match.Line < 1 || match.Line > len(lines) {
		return fmt.Errorf("line %d out of range in %s", match.Line, filePath)
	}
	line := lines[match.Line-1]
	if match.Start < 0 || match.End > len(line) || match.Start >= match.End || line[match.Start:match.End] != match.Version {
		return fmt.Errorf("version %s not found at line %d of %s", match.Version, match.Line, filePath)
	}
	lines[match.Line-1] = line[:match.Start] + newVersion + line[match.End:]

	if err := os.WriteFile(filePath, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return fmt.Errorf("writing file %s: %w", filePath, err)
	}
	return nil
}

// BumpVersionInFile finds the main version in a file and replaces it with
// newVersion. It reports whether a version was found.
func BumpVersionInFile(filePath, newVersion string) (bool, error) {
	match, err := FindMainVersionInFile(filePath)
	if err != nil {
		return false, err
	}
	if match == nil {
		return false, nil
	}
	if err := ReplaceVersionInFile(filePath, newVersion, *match); err != nil {
		return false, err
	}
	return true, nil
}

// checkBumpFileVersion reports whether the version found in a bump file may be
// replaced when the version file goes from old to next. The found version must
// be valid semver and must not be newer than next. A version picked up by the
// first-version fallback must equal old, since it may belong to a dependency.
func checkBumpFileVersion(match VersionMatch, old, next Version) error {
	found := "v" + match.Version
	if !semver.IsValid(found) {
		return fmt.Errorf("version %s at line %d is not a semantic version", match.Version, match.Line)
	}
	if semver.Compare(found, next.Canonical()) > 0 {
		return fmt.Errorf("version %s at line %d is newer than %s", match.Version, match.Line, next)
	}
	if match.Pattern == fallbackVersionPattern.name && semver.Compare(found, old.Canonical()) != 0 {
		return fmt.Errorf("version %s at line %d does not match %s", match.Version, match.Line, old)
	}
	return nil
}
