// Package refmodel predicts what the migration tool does to a URI.
//
// Matching and rewriting are split into the same five dimensions: scheme,
// container, account, path and endpoint. Each dimension is one entry in an
// ordered rule list, so any single dimension can be evaluated and tested on
// its own. Nothing here performs I/O.
package refmodel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/urioracle/internal/migspec"
	"github.com/roach88/urioracle/internal/storageuri"
)

// Dimension names one axis of matching and rewriting.
type Dimension string

const (
	DimScheme    Dimension = "scheme"
	DimContainer Dimension = "container"
	DimAccount   Dimension = "account"
	DimPath      Dimension = "path"
	DimEndpoint  Dimension = "endpoint"
	DimDomain    Dimension = "domain"
)

type matchRule struct {
	dim   Dimension
	match func(u storageuri.URI, s migspec.Spec, endpoint string) bool
}

var matchRules = []matchRule{
	{DimScheme, func(u storageuri.URI, s migspec.Spec, _ string) bool {
		return s.TypeSrc.Contains(u.Scheme)
	}},
	{DimContainer, func(u storageuri.URI, s migspec.Spec, _ string) bool {
		// ADL URIs have no container and only pass an unconstrained selector.
		if u.Container == "" {
			return s.ContainerSrc.MatchesAll()
		}
		return s.ContainerSrc.Contains(u.Container)
	}},
	{DimAccount, func(u storageuri.URI, s migspec.Spec, _ string) bool {
		return accountSelected(u, s)
	}},
	{DimPath, func(u storageuri.URI, s migspec.Spec, _ string) bool {
		if s.PathSrc.MatchesAll() {
			return true
		}
		_, ok := longestPathPrefix(u, s.PathSrc)
		return ok
	}},
	{DimEndpoint, func(u storageuri.URI, _ migspec.Spec, endpoint string) bool {
		// A plain substring test for every scheme: ADL URIs only match when
		// the caller passes the ADL domain as the endpoint.
		return endpoint != "" && strings.Contains(u.Domain, endpoint)
	}},
}

type rewriteRule struct {
	dim Dimension
	// apply receives the untouched input alongside the URI rewritten so far;
	// selection conditions are always evaluated against the input.
	apply func(orig, u storageuri.URI, s migspec.Spec, endpoint string) storageuri.URI
}

// Rules run in order and only when the destination field they own is set.
var rewriteRules = []rewriteRule{
	{DimScheme, func(_, u storageuri.URI, s migspec.Spec, _ string) storageuri.URI {
		if s.TypeDest == "" {
			return u
		}
		return u.WithScheme(s.TypeDest)
	}},
	{DimDomain, func(_, u storageuri.URI, s migspec.Spec, endpoint string) storageuri.URI {
		if s.TypeDest == "" {
			return u
		}
		return u.WithDomain(storageuri.DomainFor(s.TypeDest, endpoint))
	}},
	{DimContainer, func(orig, u storageuri.URI, s migspec.Spec, _ string) storageuri.URI {
		// A URI without a container never gains one.
		if s.ContainerDest == "" || orig.Container == "" {
			return u
		}
		if s.ContainerSrc.Contains(orig.Container) {
			return u.WithContainer(s.ContainerDest)
		}
		return u
	}},
	{DimAccount, func(orig, u storageuri.URI, s migspec.Spec, _ string) storageuri.URI {
		if s.AccountDest == "" || !accountSelected(orig, s) {
			return u
		}
		return u.WithAccount(s.AccountDest)
	}},
	{DimPath, func(_, u storageuri.URI, s migspec.Spec, _ string) storageuri.URI {
		if s.PathDest == "" {
			return u
		}
		return rewritePath(u, s.PathSrc, s.PathDest)
	}},
}

// accountSelected reports whether the account dimension selects u. ADL URIs
// are selected by the ADL account list, or by an explicit AccountSrc entry;
// when no ADL account list is given AccountSrc applies to them as to any
// other URI.
func accountSelected(u storageuri.URI, s migspec.Spec) bool {
	if storageuri.FamilyOf(u.Scheme) != storageuri.FamilyADL || s.ADLAccounts.IsAbsent() {
		return s.AccountSrc.Contains(u.Account)
	}
	return s.ADLAccounts.Contains(u.Account) || s.AccountSrc.ContainsExplicit(u.Account)
}

// longestPathPrefix returns the longest PathSrc entry that names complete
// leading segments of the URI path.
func longestPathPrefix(u storageuri.URI, paths migspec.Selector) (string, bool) {
	entries := paths.Values()
	sort.SliceStable(entries, func(i, j int) bool { return len(entries[i]) > len(entries[j]) })
	for _, p := range entries {
		if u.HasPathPrefix(p) {
			return strings.Trim(p, "/"), true
		}
	}
	return "", false
}

func rewritePath(u storageuri.URI, paths migspec.Selector, dest string) storageuri.URI {
	dest = strings.Trim(dest, "/")
	if paths.MatchesAll() {
		dir, ok := u.Dir()
		if !ok {
			return u
		}
		return u.WithPath(dest + u.Path[len(dir):])
	}
	prefix, ok := longestPathPrefix(u, paths)
	if !ok {
		return u
	}
	return u.WithPath(dest + u.Path[len(prefix):])
}

// Matches reports whether the tool selects u under s in the cloud with the
// given endpoint.
func Matches(u storageuri.URI, s migspec.Spec, endpoint string) bool {
	for _, r := range matchRules {
		if !r.match(u, s, endpoint) {
			return false
		}
	}
	return true
}

// Transform applies the destination fields of s to u. It does not check
// Matches.
func Transform(u storageuri.URI, s migspec.Spec, endpoint string) storageuri.URI {
	out := u
	for _, r := range rewriteRules {
		out = r.apply(u, out, s, endpoint)
	}
	return out
}

// DimensionResult is the outcome of one match rule.
type DimensionResult struct {
	Dimension Dimension
	Matched   bool
}

// Explanation lists every match rule outcome in evaluation order.
type Explanation []DimensionResult

// Matched reports whether every dimension matched.
func (e Explanation) Matched() bool {
	for _, r := range e {
		if !r.Matched {
			return false
		}
	}
	return true
}

// Failed returns the dimensions that did not match.
func (e Explanation) Failed() []Dimension {
	var out []Dimension
	for _, r := range e {
		if !r.Matched {
			out = append(out, r.Dimension)
		}
	}
	return out
}

func (e Explanation) String() string {
	parts := make([]string, len(e))
	for i, r := range e {
		parts[i] = fmt.Sprintf("%s=%t", r.Dimension, r.Matched)
	}
	return strings.Join(parts, " ")
}

// Explain evaluates every match rule without short-circuiting.
func Explain(u storageuri.URI, s migspec.Spec, endpoint string) Explanation {
	out := make(Explanation, len(matchRules))
	for i, r := range matchRules {
		out[i] = DimensionResult{Dimension: r.dim, Matched: r.match(u, s, endpoint)}
	}
	return out
}
