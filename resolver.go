package campaign

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Resolver substitutes per-recipient values into a template body. Scans are
// cached per body and dialect since every recipient of a batch shares them.
type Resolver struct {
	mutex sync.Mutex
	scans map[scanKey][]Placeholder
}

type scanKey struct {
	body    string
	dialect string
}

func NewResolver() *Resolver {
	return &Resolver{
		scans: map[scanKey][]Placeholder{},
	}
}

// Scan returns the placeholder spans of a body under the given dialect,
// serving repeated calls from the cache.
func (r *Resolver) Scan(body string, dialect PlaceholderDialect) ([]Placeholder, error) {
	key := scanKey{body: body, dialect: dialect.Name()}

	r.mutex.Lock()
	placeholders, ok := r.scans[key]
	r.mutex.Unlock()

	if ok {
		return placeholders, nil
	}

	placeholders, err := dialect.Scan(body)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to scan template")
	}

	r.mutex.Lock()
	r.scans[key] = placeholders
	r.mutex.Unlock()

	return placeholders, nil
}

// Resolve renders a body for one recipient. Missing mapping entries and
// missing recipient fields substitute the empty string; the only error is a
// malformed body, which callers treat as aborting the whole job.
func (r *Resolver) Resolve(body string, dialect PlaceholderDialect, mapping VariableMapping, recipient Recipient) (string, error) {
	placeholders, err := r.Scan(body, dialect)
	if err != nil {
		return "", err
	}

	if len(placeholders) == 0 {
		return body, nil
	}

	var out strings.Builder
	out.Grow(len(body))

	cursor := 0

	for _, placeholder := range placeholders {
		out.WriteString(body[cursor:placeholder.Start])
		out.WriteString(substitute(placeholder, mapping, recipient))

		cursor = placeholder.End
	}

	out.WriteString(body[cursor:])

	return out.String(), nil
}

func substitute(placeholder Placeholder, mapping VariableMapping, recipient Recipient) string {
	if placeholder.Position >= len(mapping) {
		return ""
	}

	entry := mapping[placeholder.Position]

	switch entry.Kind {
	case MappingStatic:
		return entry.Value

	case MappingFieldReference:
		value, _ := recipient.Field(entry.Value)
		return value

	default:
		return ""
	}
}
