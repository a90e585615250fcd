package store

import (
	"fmt"
	"regexp"
	"strings"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// Identifiers can't be parameterized, so everything interpolated into a
// statement must pass this check first.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Column types shared by every URI table.
const (
	LocationColumnType = "varchar(4000)"
	IDColumnType       = "bigint primary key"
)

// TableDescriptor names a two-column URI table: one location string and one
// numeric primary key.
type TableDescriptor struct {
	Name           string
	LocationColumn string
	IDColumn       string
}

// The metastore tables the migration tool rewrites.
var (
	FuncRU               = TableDescriptor{Name: "FUNC_RU", LocationColumn: "RESOURCE_URI", IDColumn: "FUNC_ID"}
	DBS                  = TableDescriptor{Name: "DBS", LocationColumn: "DB_LOCATION_URI", IDColumn: "DB_ID"}
	SDS                  = TableDescriptor{Name: "SDS", LocationColumn: "LOCATION", IDColumn: "SD_ID"}
	SkewedColValueLocMap = TableDescriptor{Name: "SKEWED_COL_VALUE_LOC_MAP", LocationColumn: "LOCATION", IDColumn: "SD_ID"}
)

// MetastoreTables returns the four URI tables.
func MetastoreTables() []TableDescriptor {
	return []TableDescriptor{FuncRU, DBS, SDS, SkewedColValueLocMap}
}

// LookupTable finds a metastore table by name, ignoring case.
func LookupTable(name string) (TableDescriptor, bool) {
	for _, t := range MetastoreTables() {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return TableDescriptor{}, false
}

func (t TableDescriptor) String() string {
	return t.Name
}

func (t TableDescriptor) validate() error {
	for _, ident := range []string{t.Name, t.LocationColumn, t.IDColumn} {
		if err := validateIdentifier(ident); err != nil {
			return err
		}
	}
	return nil
}

func validateIdentifier(ident string) error {
	if !validIdentifier.MatchString(ident) {
		return fmt.Errorf("%w %q: must match pattern %s", ErrInvalidIdentifier, ident, validIdentifier.String())
	}
	return nil
}
