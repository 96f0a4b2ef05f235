package template

import (
	"fmt"
	"strings"

	"github.com/pcdshub/pytmc/internal/domain"
)

// ExpandMacros replaces $(NAME) and $(NAME=default) references with values
// from macros. Undefined macros without a default are left as written unless
// strict is set, in which case they are an error.
func ExpandMacros(input string, macros domain.Vars, strict bool) (string, error) {
	if input == "" {
		return "", nil
	}

	var out strings.Builder
	rest := input
	for {
		start := strings.Index(rest, "$(")
		if start == -1 {
			out.WriteString(rest)
			return out.String(), nil
		}

		out.WriteString(rest[:start])
		rest = rest[start+2:]

		end := strings.Index(rest, ")")
		if end == -1 {
			return "", &domain.OpError{
				Op:   "template.expand",
				Kind: domain.KindInvalidConfig,
				Err:  fmt.Errorf("unclosed macro reference: %w", domain.ErrInvalidConfig),
			}
		}

		expr := rest[:end]
		rest = rest[end+1:]

		name, def, hasDefault := strings.Cut(expr, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return "", &domain.OpError{
				Op:   "template.expand",
				Kind: domain.KindInvalidConfig,
				Err:  fmt.Errorf("empty macro reference: %w", domain.ErrInvalidConfig),
			}
		}

		if value, ok := macros[name]; ok {
			out.WriteString(value)
			continue
		}
		if hasDefault {
			out.WriteString(def)
			continue
		}
		if strict {
			return "", &domain.OpError{
				Op:   "template.expand",
				Kind: domain.KindMissingVar,
				Err:  fmt.Errorf("macro %q: %w", name, domain.ErrMissingVar),
			}
		}
		out.WriteString("$(" + expr + ")")
	}
}

// ParseMacros turns K=V pairs into macro values.
func ParseMacros(pairs []string) (domain.Vars, error) {
	out := domain.Vars{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, &domain.OpError{
				Op:   "template.macros",
				Kind: domain.KindInvalidConfig,
				Err:  fmt.Errorf("expected NAME=VALUE, got %q: %w", p, domain.ErrInvalidConfig),
			}
		}
		out[k] = v
	}
	return out, nil
}
