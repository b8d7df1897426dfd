package env

import (
	"os"
	"regexp"
	"sort"
	"sync"

	"github.com/abdul-hamid-achik/hiteval/packages/builtin"
)

var (
	referencePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)
	functionPattern  = regexp.MustCompile(`\$\{\$(\w+\([^)]*\))\}`)
)

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Resolver expands ${NAME} and ${NAME:-default} references, then builtin
// calls such as ${$uuid()}. Explicit variables win over the process
// environment.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]string
	useOSEnv  bool
	warnFunc  WarnFunc
	functions *builtin.Registry
}

func NewResolver() *Resolver {
	return &Resolver{
		variables: make(map[string]string),
		useOSEnv:  true,
		functions: builtin.NewRegistry(),
	}
}

// Functions exposes the registry used for ${$name(args)} calls.
func (r *Resolver) Functions() *builtin.Registry {
	return r.functions
}

// SetWarnFunc sets a function to be called for unresolved references.
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

// DisableOSEnv stops lookups in the process environment.
func (r *Resolver) DisableOSEnv() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.useOSEnv = false
}

func (r *Resolver) SetVariables(vars map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

func (r *Resolver) SetVariable(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variables[name] = value
}

// LoadFile merges the variables of a .env file.
func (r *Resolver) LoadFile(path string) error {
	vars, err := LoadDotEnv(path)
	if err != nil {
		return err
	}
	r.SetVariables(vars)
	return nil
}

func (r *Resolver) Lookup(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.variables[name]; ok {
		return v, true
	}
	if r.useOSEnv {
		return os.LookupEnv(name)
	}
	return "", false
}

// Resolve expands every reference in input. Variables are expanded first so
// they can be passed to functions. Unresolved references without a default,
// and failing or unknown calls, are left as written and reported through the
// warn func.
func (r *Resolver) Resolve(input string) string {
	out := referencePattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := referencePattern.FindStringSubmatch(match)
		if val, ok := r.Lookup(groups[1]); ok {
			return val
		}
		if len(match) > len(groups[1])+3 {
			return groups[2]
		}
		r.warn("unresolved variable: %s", groups[1])
		return match
	})

	return functionPattern.ReplaceAllStringFunc(out, func(match string) string {
		expr := functionPattern.FindStringSubmatch(match)[1]
		val, ok, err := r.functions.Call(expr)
		switch {
		case err != nil:
			r.warn("function %s failed: %v", expr, err)
			return match
		case !ok:
			r.warn("unknown function: %s", expr)
			return match
		}
		return val
	})
}

func (r *Resolver) ResolveAll(values map[string]string) map[string]string {
	if values == nil {
		return nil
	}
	result := make(map[string]string, len(values))
	for k, v := range values {
		result[r.Resolve(k)] = r.Resolve(v)
	}
	return result
}

// Unresolved lists the references in input that have no value and no default.
func (r *Resolver) Unresolved(input string) []string {
	seen := make(map[string]bool)
	for _, groups := range referencePattern.FindAllStringSubmatch(input, -1) {
		if _, ok := r.Lookup(groups[1]); ok {
			continue
		}
		if len(groups[0]) > len(groups[1])+3 {
			continue
		}
		seen[groups[1]] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}
