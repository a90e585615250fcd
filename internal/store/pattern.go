package store

import (
	"strings"

	"github.com/roach88/urioracle/internal/migspec"
	"github.com/roach88/urioracle/internal/storageuri"
)

// LikePattern builds a source-side pattern for QueryMatchingWithID. Only
// single-valued selectors are pinned; sets and wildcards become the wildcard
// marker, so the pattern selects a superset of the rows the migration matches.
// It exists to cross-check predictions against the store's own matcher.
func LikePattern(s migspec.Spec, endpoint string) string {
	w := migspec.Wildcard
	scheme, schemeKnown := s.TypeSrc.Single()
	isADL := schemeKnown && storageuri.FamilyOf(scheme) == storageuri.FamilyADL
	container, containerKnown := s.ContainerSrc.Single()

	// A pinned container rules out ADL URIs, which carry none.
	nonADL := (schemeKnown && !isADL) || containerKnown

	var b strings.Builder
	if schemeKnown {
		b.WriteString(scheme)
	} else {
		b.WriteString(w)
	}
	b.WriteString("://")

	if containerKnown {
		b.WriteString(container + "@")
	} else {
		b.WriteString(w)
	}

	if acct, ok := patternAccount(s, isADL, nonADL); ok {
		b.WriteString(acct + ".")
	}
	b.WriteString(w)

	switch {
	case isADL:
		b.WriteString(storageuri.ADLDomain)
	case nonADL && endpoint != "":
		b.WriteString(endpoint)
	}

	if p, ok := s.PathSrc.Single(); ok {
		b.WriteString(w + "/" + strings.Trim(p, "/") + "/" + w)
	} else {
		b.WriteString(w)
	}

	return collapseWildcards(b.String())
}

func patternAccount(s migspec.Spec, isADL, nonADL bool) (string, bool) {
	switch {
	case nonADL:
		return s.AccountSrc.Single()
	case isADL && s.ADLAccounts.IsAbsent():
		return s.AccountSrc.Single()
	case isADL && len(s.AccountSrc.Values()) == 0:
		return s.ADLAccounts.Single()
	default:
		return "", false
	}
}

func collapseWildcards(p string) string {
	for strings.Contains(p, "**") {
		p = strings.ReplaceAll(p, "**", "*")
	}
	return p
}
