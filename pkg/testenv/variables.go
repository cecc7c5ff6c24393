package testenv

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Variable is one environment variable name/value pair.
type Variable struct {
	Name  string
	Value string
}

// Var is shorthand for Variable{Name: name, Value: value}.
func Var(name, value string) Variable {
	return Variable{Name: name, Value: value}
}

func (v Variable) String() string {
	return v.Name + "=" + v.Value
}

// Variables are shared variables keyed by name. The zero value is empty and
// ready to use through Add.
type Variables map[string]string

// Add inserts pairs. It is all-or-nothing: an empty name or a name already
// present (in v or earlier in pairs) leaves v untouched.
func (v *Variables) Add(pairs ...Variable) error {
	if err := checkPairs(pairs, *v); err != nil {
		return err
	}
	if *v == nil {
		*v = make(Variables, len(pairs))
	}
	for _, p := range pairs {
		(*v)[p.Name] = p.Value
	}
	return nil
}

// Clone returns an independent copy.
func (v Variables) Clone() Variables {
	if v == nil {
		return Variables{}
	}
	return maps.Clone(v)
}

// Sorted returns the variables ordered by name.
func (v Variables) Sorted() []Variable {
	out := make([]Variable, 0, len(v))
	for _, k := range slices.Sorted(maps.Keys(v)) {
		out = append(out, Variable{Name: k, Value: v[k]})
	}
	return out
}

func checkPairs(pairs []Variable, existing map[string]string) error {
	seen := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		if strings.TrimSpace(p.Name) == "" {
			return invalidArg("variable name must not be empty")
		}
		if strings.Contains(p.Name, "=") {
			return invalidArg("variable name %q must not contain '='", p.Name)
		}
		if _, ok := existing[p.Name]; ok {
			return fmt.Errorf("%w: variable %s already set", ErrDuplicateKey, p.Name)
		}
		if _, ok := seen[p.Name]; ok {
			return fmt.Errorf("%w: variable %s declared twice", ErrDuplicateKey, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

// effectiveEnv merges shared and own into KEY=VALUE strings sorted by key.
// own wins on conflicting names.
func effectiveEnv(shared Variables, own []Variable) []string {
	merged := shared.Clone()
	for _, p := range own {
		merged[p.Name] = p.Value
	}
	env := make([]string, 0, len(merged))
	for _, p := range merged.Sorted() {
		env = append(env, p.String())
	}
	return env
}
