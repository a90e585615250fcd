package refmodel

import (
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/roach88/urioracle/internal/migspec"
	"github.com/roach88/urioracle/internal/storageuri"
)

var (
	tokenGen  = rapid.StringMatching(`[a-z][a-z0-9]{0,7}`)
	schemeGen = rapid.SampledFrom([]string{"wasb", "wasbs", "abfs", "abfss", "adl"})
	cloudGen  = rapid.SampledFrom(storageuri.Clouds())
)

func genURI(t *rapid.T, cloud storageuri.Cloud) storageuri.URI {
	scheme := schemeGen.Draw(t, "scheme")
	segments := rapid.SliceOfN(tokenGen, 1, 4).Draw(t, "segments")
	u := storageuri.URI{
		Scheme:  scheme,
		Account: tokenGen.Draw(t, "account"),
		Domain:  storageuri.DomainFor(scheme, cloud.Endpoint),
		Path:    strings.Join(segments, "/"),
	}
	if storageuri.FamilyOf(scheme) != storageuri.FamilyADL {
		u.Container = tokenGen.Draw(t, "container")
	}
	return u
}

func genSpec(t *rapid.T) migspec.Spec {
	sel := func(label string) migspec.Selector {
		switch rapid.IntRange(0, 2).Draw(t, label+"-kind") {
		case 0:
			return migspec.Selector{}
		case 1:
			return migspec.AnyValue()
		default:
			return migspec.OneOf(rapid.SliceOfN(tokenGen, 1, migspec.MaxSelectorEntries).Draw(t, label)...)
		}
	}
	dest := func(label string) string {
		if rapid.Bool().Draw(t, label+"-set") {
			return tokenGen.Draw(t, label)
		}
		return ""
	}
	s := migspec.Spec{
		ContainerSrc:  sel("containersrc"),
		AccountSrc:    sel("accountsrc"),
		PathSrc:       sel("pathsrc"),
		ADLAccounts:   sel("adlaccounts"),
		ContainerDest: dest("containerdest"),
		AccountDest:   dest("accountdest"),
		PathDest:      dest("pathdest"),
	}
	if rapid.Bool().Draw(t, "typedest-set") {
		s.TypeDest = schemeGen.Draw(t, "typedest")
	}
	return s
}

func TestProperty_NoDestinationIsIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cloud := cloudGen.Draw(t, "cloud")
		u := genURI(t, cloud)
		s := genSpec(t)
		s.TypeDest, s.ContainerDest, s.AccountDest, s.PathDest = "", "", "", ""

		if got := Transform(u, s, cloud.Endpoint); got != u {
			t.Fatalf("Transform changed %s to %s without destination fields", u, got)
		}
	})
}

func TestProperty_TransformedURIRoundTrips(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cloud := cloudGen.Draw(t, "cloud")
		u := genURI(t, cloud)
		s := genSpec(t)

		out := Transform(u, s, cloud.Endpoint)
		parsed, err := storageuri.Parse(out.String())
		if err != nil {
			t.Fatalf("transformed uri %q does not parse: %v", out, err)
		}
		if parsed.String() != out.String() {
			t.Fatalf("round trip %q != %q", parsed, out)
		}
	})
}

func TestProperty_PathPrefixIsSegmentExact(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		segments := rapid.SliceOfN(tokenGen, 2, 5).Draw(t, "segments")
		n := rapid.IntRange(1, len(segments)-1).Draw(t, "prefix-len")
		prefix := strings.Join(segments[:n], "/")
		suffix := tokenGen.Draw(t, "suffix")

		u := storageuri.URI{Scheme: "wasb", Container: "c", Account: "a", Domain: "blob.core.windows.net", Path: strings.Join(segments, "/")}

		if !Matches(u, migspec.Spec{PathSrc: migspec.OneOf(prefix)}, "core.windows.net") {
			t.Fatalf("%q should match path prefix %q", u.Path, prefix)
		}
		if Matches(u, migspec.Spec{PathSrc: migspec.OneOf(prefix + suffix)}, "core.windows.net") &&
			!strings.HasPrefix(u.Path, prefix+suffix+"/") {
			t.Fatalf("%q matched partial segment %q", u.Path, prefix+suffix)
		}
	})
}

func TestProperty_ReportParsesBack(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cloud := cloudGen.Draw(t, "cloud")
		n := rapid.IntRange(0, 20).Draw(t, "n")
		dataset := make(migspec.Dataset, n)
		for i := range dataset {
			dataset[i] = genURI(t, cloud).String()
		}
		s := genSpec(t)

		records := Predict(dataset, s, cloud)
		report := Report(records)
		if got := Report(ParseReport(report)); got != report {
			t.Fatalf("report did not survive parsing:\n%s\n---\n%s", report, got)
		}
	})
}

func TestProperty_PredictionIsSubsetOfDataset(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cloud := cloudGen.Draw(t, "cloud")
		n := rapid.IntRange(0, 20).Draw(t, "n")
		dataset := make(migspec.Dataset, n)
		for i := range dataset {
			dataset[i] = genURI(t, cloud).String()
		}
		s := genSpec(t)

		for _, r := range Predict(dataset, s, cloud) {
			if r.ID < 1 || int(r.ID) > len(dataset) || dataset[r.ID-1] != r.OriginalURI {
				t.Fatalf("record %v does not point at its dataset row", r)
			}
		}
	})
}
