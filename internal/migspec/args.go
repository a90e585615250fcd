package migspec

import "strings"

// LiveRunSwitch makes the migration tool commit its changes. Without it the
// tool performs a dry run.
const LiveRunSwitch = "--liverun"

// Arg is a single flag/value pair. Flag is stored without leading dashes.
type Arg struct {
	Flag  string
	Value string
}

// Args is an ordered flag/value list. Unlike Spec it can hold anything,
// including unknown flags and oversized selector lists, so adversarial cases
// are expressed on Args directly. Methods never modify the receiver.
type Args []Arg

// Get returns the value of flag.
func (a Args) Get(flag string) (string, bool) {
	flag = trimDashes(flag)
	for _, arg := range a {
		if arg.Flag == flag {
			return arg.Value, true
		}
	}
	return "", false
}

// Has reports whether flag is present.
func (a Args) Has(flag string) bool {
	_, ok := a.Get(flag)
	return ok
}

// Set returns a copy with flag set to value. An existing flag keeps its
// position; a new flag is appended.
func (a Args) Set(flag, value string) Args {
	flag = trimDashes(flag)
	out := a.Clone()
	for i := range out {
		if out[i].Flag == flag {
			out[i].Value = value
			return out
		}
	}
	return append(out, Arg{Flag: flag, Value: value})
}

// Delete returns a copy without the given flags.
func (a Args) Delete(flags ...string) Args {
	drop := make(map[string]bool, len(flags))
	for _, f := range flags {
		drop[trimDashes(f)] = true
	}
	out := make(Args, 0, len(a))
	for _, arg := range a {
		if !drop[arg.Flag] {
			out = append(out, arg)
		}
	}
	return out
}

// With returns a copy with every override applied in order.
func (a Args) With(overrides Args) Args {
	out := a.Clone()
	for _, o := range overrides {
		out = out.Set(o.Flag, o.Value)
	}
	return out
}

func (a Args) Clone() Args {
	if a == nil {
		return nil
	}
	return append(Args(nil), a...)
}

// Strings renders the list as process arguments: "--flag", "value", ...
func (a Args) Strings() []string {
	out := make([]string, 0, 2*len(a))
	for _, arg := range a {
		out = append(out, "--"+arg.Flag, arg.Value)
	}
	return out
}

// String renders the list on one line for diagnostics.
func (a Args) String() string {
	return strings.Join(a.Strings(), " ")
}

// Pairs builds Args from alternating flag and value strings.
func Pairs(kv ...string) Args {
	if len(kv)%2 != 0 {
		panic("migspec: Pairs requires an even number of arguments")
	}
	out := make(Args, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		out = append(out, Arg{Flag: trimDashes(kv[i]), Value: kv[i+1]})
	}
	return out
}
