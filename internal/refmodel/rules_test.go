package refmodel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/urioracle/internal/migspec"
	"github.com/roach88/urioracle/internal/storageuri"
)

const defaultEndpoint = "core.windows.net"

func mustSpec(t *testing.T, kv ...string) migspec.Spec {
	t.Helper()
	s, err := migspec.FromArgs(migspec.Pairs(kv...))
	require.NoError(t, err)
	return s
}

func TestConcreteScenario(t *testing.T) {
	spec := mustSpec(t,
		"typesrc", "wasb",
		"containersrc", "bravo",
		"accountsrc", "gopher",
		"pathsrc", "*",
		"typedest", "wasbs",
		"accountdest", "echo",
	)
	dataset := migspec.Dataset{"wasb://bravo@gopher.blob.core.windows.net/warehouse/hivetables/t1"}

	records := Predict(dataset, spec, storageuri.DefaultCloud)

	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0].ID)
	assert.Equal(t, "wasbs://bravo@echo.blob.core.windows.net/warehouse/hivetables/t1", records[0].TransformedURI)
	assert.Equal(t,
		"1,wasb://bravo@gopher.blob.core.windows.net/warehouse/hivetables/t1,wasbs://bravo@echo.blob.core.windows.net/warehouse/hivetables/t1",
		Report(records))

	after := Apply(dataset, records)
	assert.Equal(t, migspec.Dataset{"wasbs://bravo@echo.blob.core.windows.net/warehouse/hivetables/t1"}, after)
	assert.Equal(t, "wasb://bravo@gopher.blob.core.windows.net/warehouse/hivetables/t1", dataset[0], "Apply must not modify its input")
}

func TestMatches_PerDimension(t *testing.T) {
	u := storageuri.MustParse("wasb://bravo@gopher.blob.core.windows.net/warehouse/hivetables/t1")

	tests := []struct {
		name     string
		spec     migspec.Spec
		endpoint string
		failed   []Dimension
	}{
		{name: "empty spec matches", spec: migspec.Spec{}, endpoint: defaultEndpoint},
		{name: "scheme excluded", spec: migspec.Spec{TypeSrc: migspec.OneOf("abfs")}, endpoint: defaultEndpoint, failed: []Dimension{DimScheme}},
		{name: "container excluded", spec: migspec.Spec{ContainerSrc: migspec.OneOf("alpha")}, endpoint: defaultEndpoint, failed: []Dimension{DimContainer}},
		{name: "account excluded", spec: migspec.Spec{AccountSrc: migspec.OneOf("echo")}, endpoint: defaultEndpoint, failed: []Dimension{DimAccount}},
		{name: "path excluded", spec: migspec.Spec{PathSrc: migspec.OneOf("hive")}, endpoint: defaultEndpoint, failed: []Dimension{DimPath}},
		{name: "other cloud", spec: migspec.Spec{}, endpoint: "core.chinacloudapi.cn", failed: []Dimension{DimEndpoint}},
		{
			name:     "every dimension excluded",
			spec:     migspec.Spec{TypeSrc: migspec.OneOf("adl"), ContainerSrc: migspec.OneOf("x"), AccountSrc: migspec.OneOf("y"), PathSrc: migspec.OneOf("z")},
			endpoint: "core.cloudapi.de",
			failed:   []Dimension{DimScheme, DimContainer, DimAccount, DimPath, DimEndpoint},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := Explain(u, tt.spec, tt.endpoint)
			assert.Equal(t, tt.failed, exp.Failed(), exp.String())
			assert.Equal(t, len(tt.failed) == 0, Matches(u, tt.spec, tt.endpoint))
			assert.Equal(t, exp.Matched(), Matches(u, tt.spec, tt.endpoint))
		})
	}
}

func TestMatches_PathIsExactLeadingSegment(t *testing.T) {
	hivetables := storageuri.MustParse("wasb://bravo@gopher.blob.core.windows.net/warehouse/hivetables/t1")
	hive := storageuri.MustParse("wasb://bravo@gopher.blob.core.windows.net/warehouse/hive/t2")

	tests := []struct {
		pathSrc        string
		hivetablesHits bool
		hiveHits       bool
	}{
		{"warehouse/hivetables", true, false},
		{"warehouse/hive", false, true},
		{"hive", false, false},
		{"warehouse", true, true},
		{"warehouse/hiv", false, false},
		{"managed/tables,warehouse/hive", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.pathSrc, func(t *testing.T) {
			spec := mustSpec(t, "pathsrc", tt.pathSrc)
			assert.Equal(t, tt.hivetablesHits, Matches(hivetables, spec, defaultEndpoint))
			assert.Equal(t, tt.hiveHits, Matches(hive, spec, defaultEndpoint))
		})
	}
}

func TestMatches_ADL(t *testing.T) {
	gopher := storageuri.MustParse("adl://gopher.azuredatalakestore.net/warehouse/t6")
	adlEndpoint := storageuri.ADLDomain

	t.Run("selected by adl accounts", func(t *testing.T) {
		spec := mustSpec(t, "typesrc", "adl", "adlaccounts", "gopher,echo", "accountsrc", "*", "containersrc", "*")
		assert.True(t, Matches(gopher, spec, adlEndpoint))
	})

	t.Run("cloud endpoint is a plain substring test", func(t *testing.T) {
		spec := mustSpec(t, "typesrc", "adl", "adlaccounts", "gopher,echo", "accountsrc", "*", "containersrc", "*")
		assert.False(t, Matches(gopher, spec, defaultEndpoint))
		assert.Equal(t, []Dimension{DimEndpoint}, Explain(gopher, spec, defaultEndpoint).Failed())
	})

	t.Run("wildcard accountsrc does not widen adl accounts", func(t *testing.T) {
		spec := mustSpec(t, "typesrc", "adl", "adlaccounts", "echo", "accountsrc", "*")
		assert.False(t, Matches(gopher, spec, adlEndpoint))
	})

	t.Run("explicit accountsrc also selects", func(t *testing.T) {
		spec := mustSpec(t, "typesrc", "adl", "adlaccounts", "echo", "accountsrc", "gopher")
		assert.True(t, Matches(gopher, spec, adlEndpoint))
	})

	t.Run("explicit container list excludes containerless uris", func(t *testing.T) {
		spec := mustSpec(t, "typesrc", "adl", "adlaccounts", "gopher", "containersrc", "bravo")
		assert.Equal(t, []Dimension{DimContainer}, Explain(gopher, spec, adlEndpoint).Failed())
	})

	t.Run("other cloud endpoints never match", func(t *testing.T) {
		spec := mustSpec(t, "adlaccounts", "gopher")
		assert.False(t, Matches(gopher, spec, "core.chinacloudapi.cn"))
	})
}

func TestTransform_Rules(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		spec     []string
		endpoint string
		want     string
	}{
		{
			name:     "no destination is identity",
			uri:      "abfs://bravo@gopher.dfs.core.windows.net/hive/t3",
			spec:     []string{"typesrc", "*"},
			endpoint: defaultEndpoint,
			want:     "abfs://bravo@gopher.dfs.core.windows.net/hive/t3",
		},
		{
			name:     "dfs to blob in another cloud",
			uri:      "abfs://bravo@gopher.dfs.core.cloudapi.de/warehouse/t10",
			spec:     []string{"typedest", "wasbs"},
			endpoint: "core.cloudapi.de",
			want:     "wasbs://bravo@gopher.blob.core.cloudapi.de/warehouse/t10",
		},
		{
			name:     "blob to dfs",
			uri:      "wasb://bravo@gopher.blob.core.windows.net/warehouse/t1",
			spec:     []string{"typedest", "abfss"},
			endpoint: defaultEndpoint,
			want:     "abfss://bravo@gopher.dfs.core.windows.net/warehouse/t1",
		},
		{
			name:     "to adl keeps the container",
			uri:      "wasb://bravo@echo.blob.core.windows.net/managed/tables/hive/t5",
			spec:     []string{"typesrc", "wasb", "accountsrc", "echo", "typedest", "adl", "accountdest", "newadlacct"},
			endpoint: defaultEndpoint,
			want:     "adl://bravo@newadlacct.azuredatalakestore.net/managed/tables/hive/t5",
		},
		{
			name:     "containerless uri never gains a container",
			uri:      "adl://gopher.azuredatalakestore.net/warehouse/t6",
			spec:     []string{"containersrc", "*", "containerdest", "newctr", "typedest", "wasb"},
			endpoint: defaultEndpoint,
			want:     "wasb://gopher.blob.core.windows.net/warehouse/t6",
		},
		{
			name:     "adl to adl",
			uri:      "adl://gopher.azuredatalakestore.net/warehouse/hivetables/t6",
			spec:     []string{"typesrc", "adl", "adlaccounts", "gopher,echo", "typedest", "adl", "accountdest", "newadlacct"},
			endpoint: defaultEndpoint,
			want:     "adl://newadlacct.azuredatalakestore.net/warehouse/hivetables/t6",
		},
		{
			name:     "container only when selected",
			uri:      "wasb://bravo@gopher.blob.core.windows.net/warehouse/t1",
			spec:     []string{"containersrc", "alpha", "containerdest", "newctr"},
			endpoint: defaultEndpoint,
			want:     "wasb://bravo@gopher.blob.core.windows.net/warehouse/t1",
		},
		{
			name:     "all aspects",
			uri:      "wasb://bravo@gopher.blob.core.windows.net/warehouse/hivetables/t1",
			spec:     []string{"typesrc", "abfs,abfss,wasb,wasbs", "containersrc", "bravo", "accountsrc", "gopher", "pathsrc", "*", "typedest", "wasbs", "accountdest", "echo", "containerdest", "newctr", "pathdest", "newpath"},
			endpoint: defaultEndpoint,
			want:     "wasbs://newctr@echo.blob.core.windows.net/newpath/t1",
		},
		{
			name:     "longest path entry wins",
			uri:      "wasb://bravo@echo.blob.core.windows.net/managed/tables/hive/t5",
			spec:     []string{"pathsrc", "managed/tables,managed/tables/hive", "pathdest", "resultpath"},
			endpoint: defaultEndpoint,
			want:     "wasb://bravo@echo.blob.core.windows.net/resultpath/t5",
		},
		{
			name:     "wildcard path replaces every directory",
			uri:      "wasb://bravo@echo.blob.core.windows.net/managed/tables/hive/t5",
			spec:     []string{"pathsrc", "*", "pathdest", "resultpath"},
			endpoint: defaultEndpoint,
			want:     "wasb://bravo@echo.blob.core.windows.net/resultpath/t5",
		},
		{
			name:     "wildcard path with a single directory",
			uri:      "wasb://bravo@gopher.blob.core.windows.net/warehouse/hivetables/t1",
			spec:     []string{"pathsrc", "*", "pathdest", "newpath"},
			endpoint: defaultEndpoint,
			want:     "wasb://bravo@gopher.blob.core.windows.net/newpath/t1",
		},
		{
			name:     "wildcard path leaves a lone file name alone",
			uri:      "wasb://bravo@echo.blob.core.windows.net/t5",
			spec:     []string{"pathsrc", "*", "pathdest", "resultpath"},
			endpoint: defaultEndpoint,
			want:     "wasb://bravo@echo.blob.core.windows.net/t5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transform(storageuri.MustParse(tt.uri), mustSpec(t, tt.spec...), tt.endpoint)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestPredict_SecondPassUsesCurrentData(t *testing.T) {
	dataset, err := migspec.LoadDataset("testdata/mockup-metastore-uris")
	require.NoError(t, err)

	spec := mustSpec(t,
		"typesrc", "abfs,abfss,wasb,wasbs",
		"containersrc", "bravo",
		"accountsrc", "gopher",
		"adlaccounts", "gopher",
		"pathsrc", "*",
		"typedest", "wasbs",
		"accountdest", "echo",
	)

	first := Predict(dataset, spec, storageuri.DefaultCloud)
	require.NotEmpty(t, first)

	advanced := Apply(dataset, first)
	second := Predict(advanced, spec, storageuri.DefaultCloud)

	// The first pass moved every gopher account to echo, so nothing is left.
	assert.Empty(t, second)
	assert.NotEqual(t, Report(first), Report(second))
}

func TestPredict_SkipsUnparseableEntries(t *testing.T) {
	records := Predict(migspec.Dataset{"not a uri", "wasb://b@a.blob.core.windows.net/x/y"}, migspec.Spec{TypeDest: "wasbs"}, storageuri.DefaultCloud)
	require.Len(t, records, 1)
	assert.Equal(t, int64(2), records[0].ID)
}

func TestPredict_FixtureExpectations(t *testing.T) {
	dataset, err := migspec.LoadDataset("testdata/mockup-metastore-uris")
	require.NoError(t, err)

	base := []string{"accountsrc", "*", "containersrc", "*", "pathsrc", "*"}
	tests := []struct {
		name          string
		spec          []string
		matchEndpoint string
		want          []string
	}{
		{
			name:          "adl to adl",
			spec:          []string{"typesrc", "adl", "adlaccounts", "gopher,echo", "typedest", "adl", "accountdest", "newadlacct"},
			matchEndpoint: storageuri.ADLDomain,
			want: []string{
				"6,adl://gopher.azuredatalakestore.net/warehouse/hivetables/t6,adl://newadlacct.azuredatalakestore.net/warehouse/hivetables/t6",
				"7,adl://echo.azuredatalakestore.net/managed/tables/t7,adl://newadlacct.azuredatalakestore.net/managed/tables/t7",
			},
		},
		{
			name:          "adl source under the cloud endpoint",
			spec:          []string{"typesrc", "adl", "adlaccounts", "gopher,echo", "typedest", "adl", "accountdest", "newadlacct"},
			matchEndpoint: defaultEndpoint,
		},
		{
			name:          "adl to non adl",
			spec:          []string{"typesrc", "adl", "adlaccounts", "gopher,echo", "typedest", "wasb", "accountdest", "newwasbacct"},
			matchEndpoint: storageuri.ADLDomain,
			want: []string{
				"6,adl://gopher.azuredatalakestore.net/warehouse/hivetables/t6,wasb://newwasbacct.blob.core.windows.net/warehouse/hivetables/t6",
				"7,adl://echo.azuredatalakestore.net/managed/tables/t7,wasb://newwasbacct.blob.core.windows.net/managed/tables/t7",
			},
		},
		{
			name:          "non adl to adl",
			spec:          []string{"typesrc", "wasb", "accountsrc", "echo", "typedest", "adl", "accountdest", "newadlacct"},
			matchEndpoint: defaultEndpoint,
			want: []string{
				"5,wasb://bravo@echo.blob.core.windows.net/managed/tables/hive/t5,adl://bravo@newadlacct.azuredatalakestore.net/managed/tables/hive/t5",
			},
		},
		{
			name: "all migration aspects",
			spec: []string{
				"typesrc", "abfs,abfss,wasb,wasbs", "containersrc", "bravo", "accountsrc", "gopher", "adlaccounts", "gopher",
				"typedest", "wasbs", "accountdest", "echo", "containerdest", "newctr", "pathdest", "newpath",
			},
			matchEndpoint: defaultEndpoint,
			want: []string{
				"1,wasb://bravo@gopher.blob.core.windows.net/warehouse/hivetables/t1,wasbs://newctr@echo.blob.core.windows.net/newpath/t1",
				"2,wasbs://bravo@gopher.blob.core.windows.net/warehouse/hive/t2,wasbs://newctr@echo.blob.core.windows.net/newpath/t2",
				"3,abfs://bravo@gopher.dfs.core.windows.net/hive/t3,wasbs://newctr@echo.blob.core.windows.net/newpath/t3",
				"14,wasbs://bravo@gopher.blob.core.windows.net/managed/tables/hive/t14,wasbs://newctr@echo.blob.core.windows.net/newpath/t14",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := migspec.FromArgs(migspec.Pairs(base...).With(migspec.Pairs(tt.spec...)))
			require.NoError(t, err)
			records := PredictMatching(dataset, spec, storageuri.DefaultCloud, tt.matchEndpoint)
			assert.Equal(t, strings.Join(tt.want, "\n"), Report(records))
		})
	}
}
