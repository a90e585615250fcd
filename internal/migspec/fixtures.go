package migspec

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Fixture file names, relative to the fixtures directory.
const (
	DatasetFile  = "mockup-metastore-uris"
	BaseArgsFile = "mockup-mandatory-arguments"
)

// Dataset is the golden list of URIs. Position i holds the row with id i+1.
type Dataset []string

func (d Dataset) Clone() Dataset {
	return append(Dataset(nil), d...)
}

// LoadDataset reads a newline-delimited URI file.
func LoadDataset(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := ParseDataset(f)
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	return ds, nil
}

// ParseDataset reads one URI per line. Lines are NFC normalized and trimmed;
// blank lines are skipped.
func ParseDataset(r io.Reader) (Dataset, error) {
	var ds Dataset
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(norm.NFC.String(sc.Text()))
		if line == "" {
			continue
		}
		ds = append(ds, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ds, nil
}

// LoadBaseArgs reads the default tool arguments.
func LoadBaseArgs(path string) (Args, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open base arguments: %w", err)
	}
	defer f.Close()

	args, err := ParseBaseArgs(f)
	if err != nil {
		return nil, fmt.Errorf("parse base arguments %s: %w", path, err)
	}
	return args, nil
}

// ParseBaseArgs reads whitespace-separated flag/value pairs, conventionally
// one "--flag value" pair per line.
func ParseBaseArgs(r io.Reader) (Args, error) {
	var tokens []string
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		tokens = append(tokens, norm.NFC.String(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(tokens)%2 != 0 {
		return nil, fmt.Errorf("flag %q has no value", tokens[len(tokens)-1])
	}

	var args Args
	for i := 0; i < len(tokens); i += 2 {
		if !strings.HasPrefix(tokens[i], "-") {
			return nil, fmt.Errorf("expected a flag, got %q", tokens[i])
		}
		args = args.Set(tokens[i], tokens[i+1])
	}
	return args, nil
}
