package migspec

// Role classifies a field by what it controls in the migration tool.
type Role int

const (
	RoleConnection Role = iota
	RoleSource
	RoleDestination
	RoleOption
)

func (r Role) String() string {
	switch r {
	case RoleConnection:
		return "connection"
	case RoleSource:
		return "source"
	case RoleDestination:
		return "destination"
	case RoleOption:
		return "option"
	default:
		return "unknown"
	}
}

// Field enumerates every flag the migration tool accepts. The order of the
// constants is the order Spec.Args renders them in.
type Field int

const (
	FieldServer Field = iota
	FieldDatabase
	FieldUser
	FieldPassword
	FieldDriver
	FieldTypeSrc
	FieldContainerSrc
	FieldAccountSrc
	FieldPathSrc
	FieldADLAccounts
	FieldTypeDest
	FieldContainerDest
	FieldAccountDest
	FieldPathDest
	FieldEnvironment
	FieldTarget
	FieldQueryClient

	fieldCount
)

type fieldInfo struct {
	flag     string
	display  string
	role     Role
	selector bool
}

// Display names are the ones the tool uses in its own diagnostics.
var fieldTable = [fieldCount]fieldInfo{
	FieldServer:        {flag: "server", display: "Server", role: RoleConnection},
	FieldDatabase:      {flag: "database", display: "Database", role: RoleConnection},
	FieldUser:          {flag: "user", display: "Username", role: RoleConnection},
	FieldPassword:      {flag: "password", display: "Password", role: RoleConnection},
	FieldDriver:        {flag: "driver", display: "Driver", role: RoleConnection},
	FieldTypeSrc:       {flag: "typesrc", display: "TypeSrc", role: RoleSource, selector: true},
	FieldContainerSrc:  {flag: "containersrc", display: "ContainerSrc", role: RoleSource, selector: true},
	FieldAccountSrc:    {flag: "accountsrc", display: "AccountSrc", role: RoleSource, selector: true},
	FieldPathSrc:       {flag: "pathsrc", display: "RootpathSrc", role: RoleSource, selector: true},
	FieldADLAccounts:   {flag: "adlaccounts", display: "ADLAccounts", role: RoleSource, selector: true},
	FieldTypeDest:      {flag: "typedest", display: "TypeDest", role: RoleDestination},
	FieldContainerDest: {flag: "containerdest", display: "ContainerDest", role: RoleDestination},
	FieldAccountDest:   {flag: "accountdest", display: "AccountDest", role: RoleDestination},
	FieldPathDest:      {flag: "pathdest", display: "RootpathDest", role: RoleDestination},
	FieldEnvironment:   {flag: "environment", display: "Environment", role: RoleOption},
	FieldTarget:        {flag: "target", display: "Target", role: RoleOption},
	FieldQueryClient:   {flag: "queryclient", display: "Client", role: RoleOption},
}

var fieldsByFlag = func() map[string]Field {
	m := make(map[string]Field, fieldCount)
	for f := Field(0); f < fieldCount; f++ {
		m[fieldTable[f].flag] = f
	}
	return m
}()

// Fields returns every field in rendering order.
func Fields() []Field {
	out := make([]Field, 0, fieldCount)
	for f := Field(0); f < fieldCount; f++ {
		out = append(out, f)
	}
	return out
}

// LookupField resolves a flag name, with or without leading dashes.
func LookupField(flag string) (Field, bool) {
	f, ok := fieldsByFlag[trimDashes(flag)]
	return f, ok
}

// Flag is the flag name without dashes, e.g. "typesrc".
func (f Field) Flag() string { return fieldTable[f].flag }

// Switch is the flag as it appears on a command line, e.g. "--typesrc".
func (f Field) Switch() string { return "--" + fieldTable[f].flag }

// DisplayName is the name the tool uses when reporting the field.
func (f Field) DisplayName() string { return fieldTable[f].display }

func (f Field) Role() Role { return fieldTable[f].role }

// IsSelector reports whether the field holds a source selector.
func (f Field) IsSelector() bool { return fieldTable[f].selector }

func (f Field) String() string { return fieldTable[f].flag }

func trimDashes(flag string) string {
	for len(flag) > 0 && flag[0] == '-' {
		flag = flag[1:]
	}
	return flag
}
