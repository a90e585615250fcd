// Package migspec holds the declarative migration specification: the closed
// set of fields the migration tool understands, their selector semantics,
// and the fixtures the oracle loads them from.
package migspec

import (
	"fmt"

	"github.com/roach88/urioracle/internal/storageuri"
)

// Connection identifies the metastore database the tool operates on.
type Connection struct {
	Server   string
	Database string
	User     string
	Password string
	Driver   string
}

// Spec is a migration specification. Absent source selectors match
// everything; empty destination fields leave the component unchanged.
type Spec struct {
	Connection Connection

	TypeSrc      Selector
	ContainerSrc Selector
	AccountSrc   Selector
	PathSrc      Selector
	ADLAccounts  Selector

	TypeDest      string
	ContainerDest string
	AccountDest   string
	PathDest      string

	Environment string
	Target      string
	QueryClient string
}

// FromArgs builds a Spec, rejecting flags outside the schema and selectors
// over the cardinality limit.
func FromArgs(args Args) (Spec, error) {
	var s Spec
	for _, arg := range args {
		f, ok := LookupField(arg.Flag)
		if !ok {
			return Spec{}, &FieldError{Flag: arg.Flag, Err: ErrUnknownField}
		}
		if err := s.set(f, arg.Value); err != nil {
			return Spec{}, &FieldError{Flag: f.Flag(), Err: err}
		}
	}
	return s, nil
}

func (s *Spec) set(f Field, value string) error {
	if f.IsSelector() {
		sel, err := ParseSelector(value)
		if err != nil {
			return err
		}
		*s.selector(f) = sel
		return nil
	}
	*s.str(f) = value
	return nil
}

func (s *Spec) selector(f Field) *Selector {
	switch f {
	case FieldTypeSrc:
		return &s.TypeSrc
	case FieldContainerSrc:
		return &s.ContainerSrc
	case FieldAccountSrc:
		return &s.AccountSrc
	case FieldPathSrc:
		return &s.PathSrc
	case FieldADLAccounts:
		return &s.ADLAccounts
	}
	panic(fmt.Sprintf("migspec: %s is not a selector", f))
}

func (s *Spec) str(f Field) *string {
	switch f {
	case FieldServer:
		return &s.Connection.Server
	case FieldDatabase:
		return &s.Connection.Database
	case FieldUser:
		return &s.Connection.User
	case FieldPassword:
		return &s.Connection.Password
	case FieldDriver:
		return &s.Connection.Driver
	case FieldTypeDest:
		return &s.TypeDest
	case FieldContainerDest:
		return &s.ContainerDest
	case FieldAccountDest:
		return &s.AccountDest
	case FieldPathDest:
		return &s.PathDest
	case FieldEnvironment:
		return &s.Environment
	case FieldTarget:
		return &s.Target
	case FieldQueryClient:
		return &s.QueryClient
	}
	panic(fmt.Sprintf("migspec: %s is a selector", f))
}

// Value returns the command-line form of a field; "" when absent.
func (s Spec) Value(f Field) string {
	if f.IsSelector() {
		return s.selector(f).String()
	}
	return *s.str(f)
}

// Args renders the present fields in schema order.
func (s Spec) Args() Args {
	var out Args
	for _, f := range Fields() {
		if v := s.Value(f); v != "" {
			out = append(out, Arg{Flag: f.Flag(), Value: v})
		}
	}
	return out
}

// HasDestination reports whether any destination field is set.
func (s Spec) HasDestination() bool {
	return s.TypeDest != "" || s.ContainerDest != "" || s.AccountDest != "" || s.PathDest != ""
}

// Cloud resolves the environment field; empty means the default cloud.
func (s Spec) Cloud() (storageuri.Cloud, error) {
	if s.Environment == "" {
		return storageuri.DefaultCloud, nil
	}
	c, ok := storageuri.LookupCloud(s.Environment)
	if !ok {
		return storageuri.Cloud{}, fmt.Errorf("unknown environment %q", s.Environment)
	}
	return c, nil
}
