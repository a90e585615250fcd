// Package storageuri models the cloud storage URIs held in metastore tables.
//
// A URI has the shape
//
//	scheme://container@account.<domain>/path
//
// ADL URIs carry no container:
//
//	adl://account.azuredatalakestore.net/path
//
// URI values are immutable; every With* method returns a copy.
package storageuri

import (
	"fmt"
	"strings"
)

const schemeSeparator = "://"

// URI is a parsed storage URI.
type URI struct {
	Scheme    string
	Container string // empty for ADL
	Account   string
	Domain    string // everything after the first dot of the host, e.g. "blob.core.windows.net"
	Path      string // without the leading slash
}

// ParseError is returned when a string is not a storage URI.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid storage uri %q: %s", e.Input, e.Reason)
}

// Parse splits s into its components.
func Parse(s string) (URI, error) {
	idx := strings.Index(s, schemeSeparator)
	if idx <= 0 {
		return URI{}, &ParseError{Input: s, Reason: "missing scheme"}
	}
	u := URI{Scheme: s[:idx]}
	rest := s[idx+len(schemeSeparator):]

	authority := rest
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		authority = rest[:slash]
		u.Path = rest[slash+1:]
	}

	host := authority
	if at := strings.IndexByte(authority, '@'); at >= 0 {
		u.Container = authority[:at]
		host = authority[at+1:]
		if u.Container == "" {
			return URI{}, &ParseError{Input: s, Reason: "empty container"}
		}
	}

	dot := strings.IndexByte(host, '.')
	if dot <= 0 || dot == len(host)-1 {
		return URI{}, &ParseError{Input: s, Reason: "host must be account.domain"}
	}
	u.Account = host[:dot]
	u.Domain = host[dot+1:]

	return u, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level fixtures.
func MustParse(s string) URI {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

// String formats the URI back to its textual form.
func (u URI) String() string {
	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString(schemeSeparator)
	if u.Container != "" {
		b.WriteString(u.Container)
		b.WriteByte('@')
	}
	b.WriteString(u.Account)
	b.WriteByte('.')
	b.WriteString(u.Domain)
	if u.Path != "" {
		b.WriteByte('/')
		b.WriteString(u.Path)
	}
	return b.String()
}

// WithScheme returns a copy with the scheme replaced.
func (u URI) WithScheme(scheme string) URI {
	u.Scheme = scheme
	return u
}

// WithContainer returns a copy with the container replaced.
func (u URI) WithContainer(container string) URI {
	u.Container = container
	return u
}

// WithAccount returns a copy with the account replaced.
func (u URI) WithAccount(account string) URI {
	u.Account = account
	return u
}

// WithDomain returns a copy with the domain suffix replaced.
func (u URI) WithDomain(domain string) URI {
	u.Domain = domain
	return u
}

// WithPath returns a copy with the path replaced.
func (u URI) WithPath(path string) URI {
	u.Path = path
	return u
}

// HasPathPrefix reports whether prefix names one or more complete leading
// segments of the path: "warehouse/hivetables/t1" has prefix
// "warehouse/hivetables" but not "warehouse/hive".
func (u URI) HasPathPrefix(prefix string) bool {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return false
	}
	return strings.HasPrefix(u.Path, prefix+"/")
}

// Dir returns every directory segment of the path, that is everything
// before the last segment: "warehouse/hivetables" for
// "warehouse/hivetables/t1". It reports false when the path has no
// directory.
func (u URI) Dir() (string, bool) {
	slash := strings.LastIndexByte(u.Path, '/')
	if slash <= 0 {
		return "", false
	}
	return u.Path[:slash], true
}
