package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Version is a manifest version triple. Manifests may declare fewer than
// three components (or a dotted string); missing trailing components are zero.
type Version [3]int

// NormalizeVersion pads or truncates a component list to exactly 3 values.
func NormalizeVersion(parts []int) Version {
	var v Version
	for i := 0; i < len(v) && i < len(parts); i++ {
		v[i] = parts[i]
	}
	return v
}

// ParseVersionString parses a dotted version string like "1.20.15".
func ParseVersionString(s string) (Version, error) {
	var v Version
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) == 0 || parts[0] == "" {
		return v, fmt.Errorf("empty version string")
	}
	for i := 0; i < len(v) && i < len(parts); i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return v, fmt.Errorf("invalid version component %q: %w", parts[i], err)
		}
		v[i] = n
	}
	return v, nil
}

// CompareVersions compares two version triples lexicographically.
// Returns -1 if a < b, 0 if equal, 1 if a > b.
func CompareVersions(a, b Version) int {
	for i := range a {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

// UnmarshalJSON accepts both array form ([1, 2] or [1, 2, 0]) and dotted
// string form ("1.2"), as both occur in manifests in the wild.
func (v *Version) UnmarshalJSON(data []byte) error {
	var parts []int
	if err := json.Unmarshal(data, &parts); err == nil {
		*v = NormalizeVersion(parts)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("version must be an array or string: %w", err)
	}
	parsed, err := ParseVersionString(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Version) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int(v))
}
