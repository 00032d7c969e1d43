package robots

import (
	"fmt"
	"strings"
)

// Policy selects how conflicting Allow and Disallow rules are resolved.
type Policy int

const (
	// Standard applies the first matching rule in file order.
	Standard Policy = iota
	// AllowOverrides allows a path whenever any Allow rule matches it.
	// Disallow rules are consulted only when no Allow rule matches.
	AllowOverrides
	// MoreSpecific applies the matching rule with the longest literal
	// pattern. At equal length Allow wins.
	MoreSpecific
)

// DefaultPolicy is the policy used by Parse when none is given.
const DefaultPolicy = MoreSpecific

var policyNames = map[Policy]string{
	Standard:       "standard",
	AllowOverrides: "allow-overrides",
	MoreSpecific:   "more-specific",
}

// String returns the configuration name of the policy.
func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParsePolicy converts a configuration name into a Policy.
func ParsePolicy(s string) (Policy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for p, n := range policyNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown robots policy %q (expected standard, allow-overrides or more-specific)", s)
}
