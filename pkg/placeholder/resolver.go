// Package placeholder substitutes {dotted.path} tokens in command
// strings from a read-only nested key-value context, and validates
// that no unresolved tokens survive before anything executes.
package placeholder

import (
	"fmt"
	"regexp"
	"strings"
)

// tokenRe matches {a.b.c} placeholder tokens. Braces that don't wrap a
// dotted identifier path (awk blocks, brace expansion, JSON literals)
// are left alone.
var tokenRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_-]*(?:\.[A-Za-z0-9_-]+)*)\}`)

// Context is a read-only nested string map sourced from user-level
// configuration, keyed by dotted path (e.g. "project.alpha.path").
type Context map[string]any

// Lookup resolves a dotted path to a string value. Intermediate nodes
// must be nested maps; the leaf must be a string (or a value with an
// obvious string form). Returns false when any segment is absent.
func (c Context) Lookup(path string) (string, bool) {
	segments := strings.Split(path, ".")
	var node any = map[string]any(c)
	for i, seg := range segments {
		m, ok := node.(map[string]any)
		if !ok {
			return "", false
		}
		child, ok := m[seg]
		if !ok {
			return "", false
		}
		if i == len(segments)-1 {
			switch v := child.(type) {
			case string:
				return v, true
			case fmt.Stringer:
				return v.String(), true
			case int, int64, float64, bool:
				return fmt.Sprint(v), true
			default:
				return "", false
			}
		}
		node = child
	}
	return "", false
}

// Resolve substitutes every {dotted.path} token found in command with
// its value from ctx. Tokens whose path is absent are left untouched;
// callers that need strict behavior follow up with AssertFullyResolved.
func Resolve(command string, ctx Context) string {
	return tokenRe.ReplaceAllStringFunc(command, func(tok string) string {
		path := tok[1 : len(tok)-1]
		if val, ok := ctx.Lookup(path); ok {
			return val
		}
		return tok
	})
}

// ResolutionError reports the placeholder tokens that survived
// substitution in a command.
type ResolutionError struct {
	Command string   // the original, unresolved command
	Tokens  []string // every surviving {token}, in order of appearance
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("unresolved placeholder %s in command %q",
		strings.Join(e.Tokens, ", "), e.Command)
}

// AssertFullyResolved fails with a *ResolutionError listing every
// remaining {...} token if any survive substitution. The execution
// engine calls Resolve + AssertFullyResolved for every command before
// running any command in the batch, so a single unresolvable reference
// aborts the whole run with zero side effects.
func AssertFullyResolved(resolved, original string) error {
	tokens := tokenRe.FindAllString(resolved, -1)
	if len(tokens) == 0 {
		return nil
	}
	return &ResolutionError{Command: original, Tokens: tokens}
}
