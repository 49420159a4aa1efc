package marketapi

import (
	"fmt"
	"sort"
	"strings"
)

// EndpointClass says whether a call must carry authentication headers.
type EndpointClass int

const (
	Authenticated EndpointClass = iota // zero value, so unknown means signed
	Public
)

func (c EndpointClass) String() string {
	switch c {
	case Public:
		return "public"
	default:
		return "authenticated"
	}
}

// DefaultPublicPrefixes lists the read-only catalogue endpoints that accept unsigned calls.
var DefaultPublicPrefixes = []string{
	"categories",
	"events",
}

// Classifier decides the EndpointClass of a path against an explicit allow-list.
// Anything not on the list is Authenticated.
type Classifier struct {
	prefixes []string
}

// NewClassifier validates and stores the public prefixes. Blank prefixes are rejected because
// they would match every endpoint.
func NewClassifier(prefixes []string) (*Classifier, error) {
	seen := make(map[string]bool, len(prefixes))
	clean := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = strings.Trim(strings.TrimSpace(p), "/")
		if p == "" {
			return nil, fmt.Errorf("marketapi: empty public endpoint prefix")
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		clean = append(clean, p)
	}
	sort.Strings(clean)
	return &Classifier{prefixes: clean}, nil
}

// Classify returns Public iff endpoint starts with a listed prefix or contains "/"+prefix.
func (c *Classifier) Classify(endpoint string) EndpointClass {
	for _, p := range c.prefixes {
		if strings.HasPrefix(endpoint, p) || strings.Contains(endpoint, "/"+p) {
			return Public
		}
	}
	return Authenticated
}

// Prefixes returns a sorted copy of the allow-list.
func (c *Classifier) Prefixes() []string {
	out := make([]string, len(c.prefixes))
	copy(out, c.prefixes)
	return out
}
