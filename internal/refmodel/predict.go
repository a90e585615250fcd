package refmodel

import (
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/urioracle/internal/migspec"
	"github.com/roach88/urioracle/internal/storageuri"
)

// MatchRecord is one row the tool is expected to rewrite.
type MatchRecord struct {
	ID             int64
	OriginalURI    string
	TransformedURI string
}

func (r MatchRecord) String() string {
	return strconv.FormatInt(r.ID, 10) + "," + r.OriginalURI + "," + r.TransformedURI
}

// Predict computes the records the tool should report for dataset. Ids are
// 1-based dataset positions. Entries that do not parse as storage URIs never
// match.
func Predict(dataset migspec.Dataset, s migspec.Spec, cloud storageuri.Cloud) []MatchRecord {
	return PredictMatching(dataset, s, cloud, cloud.Endpoint)
}

// PredictMatching is Predict with the endpoint dimension tested against
// matchEndpoint instead of the cloud's endpoint. Rewrites still use the
// cloud's endpoint.
func PredictMatching(dataset migspec.Dataset, s migspec.Spec, cloud storageuri.Cloud, matchEndpoint string) []MatchRecord {
	var out []MatchRecord
	for i, raw := range dataset {
		u, err := storageuri.Parse(raw)
		if err != nil {
			continue
		}
		if !Matches(u, s, matchEndpoint) {
			continue
		}
		out = append(out, MatchRecord{
			ID:             int64(i + 1),
			OriginalURI:    raw,
			TransformedURI: Transform(u, s, cloud.Endpoint).String(),
		})
	}
	return out
}

// Apply returns the dataset as it should look after a live run.
func Apply(dataset migspec.Dataset, records []MatchRecord) migspec.Dataset {
	out := dataset.Clone()
	for _, r := range records {
		if r.ID >= 1 && int(r.ID) <= len(out) {
			out[r.ID-1] = r.TransformedURI
		}
	}
	return out
}

// Report renders records in canonical form: one "id,original,transformed"
// line per record ordered by id, joined by "\n" without a trailing newline.
func Report(records []MatchRecord) string {
	sorted := append([]MatchRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	lines := make([]string, len(sorted))
	for i, r := range sorted {
		lines[i] = r.String()
	}
	return strings.Join(lines, "\n")
}

// ParseReport extracts record lines from tool output. Any line that is not
// "id,uri,uri" with a numeric id and two storage URIs is treated as progress
// output and skipped.
func ParseReport(stdout string) []MatchRecord {
	var out []MatchRecord
	for _, line := range strings.Split(stdout, "\n") {
		if r, ok := parseRecordLine(strings.TrimRight(line, "\r")); ok {
			out = append(out, r)
		}
	}
	return out
}

func parseRecordLine(line string) (MatchRecord, bool) {
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return MatchRecord{}, false
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return MatchRecord{}, false
	}
	for _, p := range parts[1:] {
		if _, err := storageuri.Parse(p); err != nil {
			return MatchRecord{}, false
		}
	}
	return MatchRecord{ID: id, OriginalURI: parts[1], TransformedURI: parts[2]}, true
}
