package campaign

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Placeholder is a single substitution site found by scanning a template
// body. Position is the zero-based mapping index the site consumes.
type Placeholder struct {
	Start    int
	End      int
	Position int
	Name     string
}

// PlaceholderDialect scans a template body for the placeholder syntax of a
// channel. Dialects are stateless and safe for concurrent use.
type PlaceholderDialect interface {
	Name() string
	Scan(body string) ([]Placeholder, error)
}

var (
	positionalPattern = regexp.MustCompile(`##([a-zA-Z]*)(\d+)##`)
	namedPattern      = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_.]*)\s*\}\}`)
)

// PositionalDialect matches ##var1##, ##var2##, ... placeholders. The number
// in the token selects the mapping entry, so ##var2## before ##var1## still
// reads entries in token order.
type PositionalDialect struct{}

func (PositionalDialect) Name() string {
	return "positional"
}

func (PositionalDialect) Scan(body string) ([]Placeholder, error) {
	matches := positionalPattern.FindAllStringSubmatchIndex(body, -1)

	placeholders := make([]Placeholder, 0, len(matches))

	for _, m := range matches {
		number, err := strconv.Atoi(body[m[4]:m[5]])
		if err != nil || number < 1 {
			return nil, errors.Errorf("Malformed positional placeholder %q", body[m[0]:m[1]])
		}

		placeholders = append(placeholders, Placeholder{
			Start:    m[0],
			End:      m[1],
			Position: number - 1,
			Name:     body[m[2]:m[5]],
		})
	}

	if err := checkDelimiters(body, placeholders, "##"); err != nil {
		return nil, err
	}

	return placeholders, nil
}

// NamedDialect matches {{FieldName}} placeholders. Mapping entries are
// consumed left to right, first occurrence of a name claiming the position.
type NamedDialect struct{}

func (NamedDialect) Name() string {
	return "named"
}

func (NamedDialect) Scan(body string) ([]Placeholder, error) {
	matches := namedPattern.FindAllStringSubmatchIndex(body, -1)

	placeholders := make([]Placeholder, 0, len(matches))
	positions := map[string]int{}

	for _, m := range matches {
		name := body[m[2]:m[3]]

		position, seen := positions[name]
		if !seen {
			position = len(positions)
			positions[name] = position
		}

		placeholders = append(placeholders, Placeholder{
			Start:    m[0],
			End:      m[1],
			Position: position,
			Name:     name,
		})
	}

	if err := checkDelimiters(body, placeholders, "{{"); err != nil {
		return nil, err
	}

	if err := checkDelimiters(body, placeholders, "}}"); err != nil {
		return nil, err
	}

	return placeholders, nil
}

// checkDelimiters rejects bodies carrying placeholder delimiters outside any
// scanned span, e.g. "##var1#" truncated mid token or "{{name" without a
// closing brace. A malformed body fails the whole job before any send is
// attempted.
func checkDelimiters(body string, placeholders []Placeholder, delimiter string) error {
	offset := 0

	for {
		i := strings.Index(body[offset:], delimiter)
		if i < 0 {
			return nil
		}

		at := offset + i
		if !covered(placeholders, at) {
			return errors.Errorf("Malformed placeholder near offset %d", at)
		}

		offset = at + len(delimiter)
	}
}

func covered(placeholders []Placeholder, offset int) bool {
	i := sort.Search(len(placeholders), func(i int) bool {
		return placeholders[i].End > offset
	})

	return i < len(placeholders) && placeholders[i].Start <= offset
}

// DialectForChannel returns the placeholder dialect a channel's provider
// templates use. SMS providers historically use numbered tokens, the rest
// use named tokens.
func DialectForChannel(channel Channel) PlaceholderDialect {
	if channel == ChannelSms {
		return PositionalDialect{}
	}

	return NamedDialect{}
}
