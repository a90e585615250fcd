package refmodel

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/urioracle/internal/migspec"
	"github.com/roach88/urioracle/internal/storageuri"
)

func TestReport_Golden(t *testing.T) {
	dataset, err := migspec.LoadDataset("testdata/mockup-metastore-uris")
	require.NoError(t, err)

	tests := []struct {
		name string
		spec []string
	}{
		{
			name: "sample-migration",
			spec: []string{
				"typesrc", "abfs,abfss,wasb,wasbs",
				"containersrc", "bravo",
				"accountsrc", "gopher",
				"adlaccounts", "gopher",
				"pathsrc", "*",
				"typedest", "wasbs",
				"accountdest", "echo",
			},
		},
		{
			name: "path-pattern-mixed",
			spec: []string{
				"containersrc", "*",
				"typesrc", "*",
				"accountsrc", "*",
				"adlaccounts", "*",
				"pathsrc", "warehouse,managed/tables/hive",
				"typedest", "wasb",
				"accountdest", "newwasbacct",
				"pathdest", "resultpath",
			},
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := Predict(dataset, mustSpec(t, tt.spec...), storageuri.DefaultCloud)
			g.Assert(t, tt.name, []byte(Report(records)))
		})
	}
}

func TestReport_SortsByID(t *testing.T) {
	records := []MatchRecord{
		{ID: 10, OriginalURI: "a", TransformedURI: "b"},
		{ID: 2, OriginalURI: "c", TransformedURI: "d"},
	}
	assert.Equal(t, "2,c,d\n10,a,b", Report(records))
	assert.Equal(t, int64(10), records[0].ID, "Report must not reorder its input")
}

func TestReport_Empty(t *testing.T) {
	assert.Equal(t, "", Report(nil))
}

func TestParseReport_SkipsProgressLines(t *testing.T) {
	stdout := "Connecting to mockupserver...\n" +
		"1,wasb://bravo@gopher.blob.core.windows.net/w/t1,wasbs://bravo@echo.blob.core.windows.net/w/t1\r\n" +
		"Writing migration results to table SDS\n" +
		"7,not,a-uri\n" +
		"x,wasb://bravo@gopher.blob.core.windows.net/w/t1,wasb://bravo@gopher.blob.core.windows.net/w/t1\n" +
		"3,adl://echo.azuredatalakestore.net/m/t7,adl://newadlacct.azuredatalakestore.net/m/t7\n"

	got := ParseReport(stdout)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "adl://newadlacct.azuredatalakestore.net/m/t7", got[1].TransformedURI)
}
