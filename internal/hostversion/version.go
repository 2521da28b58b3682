// internal/hostversion/version.go
//
// The host exposes its build version as a dotted "MAJOR.MINOR.PATCH" string.
// This package turns that string into a Version and decides whether the
// enhanced (combobox) selector is available on that host.

package hostversion

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// EnhancedSelectMajor is the first host major release with the combobox widget.
	EnhancedSelectMajor = 11
	// EnhancedSelectMinor is the minor release that shipped the combobox widget.
	EnhancedSelectMinor = 5
)

// Version is a parsed host build version.
type Version struct {
	Major int
	Minor int
	Patch int
}

// VersionParseError reports a host version string that could not be parsed.
type VersionParseError struct {
	Input  string
	Reason string
}

func (e *VersionParseError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("hostversion: %s", e.Reason)
	}
	return fmt.Sprintf("hostversion: parse %q: %s", e.Input, e.Reason)
}

// Parse splits a dotted version string into its three numeric segments.
func Parse(raw string) (Version, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Version{}, &VersionParseError{Input: raw, Reason: "version is empty"}
	}
	parts := strings.Split(trimmed, ".")
	if len(parts) != 3 {
		return Version{}, &VersionParseError{
			Input:  raw,
			Reason: fmt.Sprintf("expected 3 segments, got %d", len(parts)),
		}
	}
	values := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Version{}, &VersionParseError{
				Input:  raw,
				Reason: fmt.Sprintf("segment %d (%q) is not numeric", i, part),
			}
		}
		values[i] = n
	}
	return Version{Major: values[0], Minor: values[1], Patch: values[2]}, nil
}

// String renders the version back into dotted form.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// SupportsEnhancedSelect applies the fixed compatibility threshold.
// Both checks are independent: 12.0.0 does not qualify.
func (v Version) SupportsEnhancedSelect() bool {
	return v.Major >= EnhancedSelectMajor && v.Minor >= EnhancedSelectMinor
}

// DetectCapability parses raw and reports whether the enhanced selector is
// available. The flag is false whenever err is non-nil; callers choose the
// fallback.
func DetectCapability(raw string) (bool, error) {
	v, err := Parse(raw)
	if err != nil {
		return false, err
	}
	return v.SupportsEnhancedSelect(), nil
}
