package storageuri

import "sort"

// Scheme names understood by the migration tool.
const (
	SchemeWASB  = "wasb"
	SchemeWASBS = "wasbs"
	SchemeABFS  = "abfs"
	SchemeABFSS = "abfss"
	SchemeADL   = "adl"
)

// ADLDomain is the only domain ADL accounts live under. ADL exists in the
// default cloud only.
const ADLDomain = "azuredatalakestore.net"

// Family groups schemes that share a domain convention.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyBlob           // wasb, wasbs
	FamilyDFS            // abfs, abfss
	FamilyADL            // adl
)

// FamilyOf returns the domain family of a scheme.
func FamilyOf(scheme string) Family {
	switch scheme {
	case SchemeWASB, SchemeWASBS:
		return FamilyBlob
	case SchemeABFS, SchemeABFSS:
		return FamilyDFS
	case SchemeADL:
		return FamilyADL
	default:
		return FamilyUnknown
	}
}

// IsKnownScheme reports whether the tool accepts scheme as a storage type.
func IsKnownScheme(scheme string) bool {
	return FamilyOf(scheme) != FamilyUnknown
}

// DomainFor returns the domain suffix a URI of the given scheme has in a
// cloud with the given endpoint.
func DomainFor(scheme, endpoint string) string {
	switch FamilyOf(scheme) {
	case FamilyBlob:
		return "blob." + endpoint
	case FamilyDFS:
		return "dfs." + endpoint
	case FamilyADL:
		return ADLDomain
	default:
		return endpoint
	}
}

// Cloud is a named Azure environment.
type Cloud struct {
	Name     string
	Endpoint string
}

// DefaultCloud is the public Azure cloud.
var DefaultCloud = Cloud{Name: "default", Endpoint: "core.windows.net"}

var clouds = map[string]Cloud{
	"default": DefaultCloud,
	"china":   {Name: "china", Endpoint: "core.chinacloudapi.cn"},
	"germany": {Name: "germany", Endpoint: "core.cloudapi.de"},
	"usgov":   {Name: "usgov", Endpoint: "core.usgovcloudapi.net"},
}

// LookupCloud returns the cloud registered under name.
func LookupCloud(name string) (Cloud, bool) {
	c, ok := clouds[name]
	return c, ok
}

// Clouds returns every known cloud ordered by name, default first.
func Clouds() []Cloud {
	out := make([]Cloud, 0, len(clouds))
	for _, c := range clouds {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == DefaultCloud.Name {
			return true
		}
		if out[j].Name == DefaultCloud.Name {
			return false
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// IsDefault reports whether c is the public cloud.
func (c Cloud) IsDefault() bool {
	return c.Name == DefaultCloud.Name
}

// EndpointFor returns the endpoint a URI of the given scheme is expected to
// carry in this cloud.
func (c Cloud) EndpointFor(scheme string) string {
	if FamilyOf(scheme) == FamilyADL {
		return ADLDomain
	}
	return c.Endpoint
}
