package campaign

import (
	"fmt"
	"strings"
)

// Recipient is an opaque bag of fields owned by the caller's lead store. The
// engine references recipients for the duration of a dispatch and never
// persists them.
type Recipient struct {
	Id     string                 `json:"id"`
	Fields map[string]interface{} `json:"fields"`
}

// Field resolves a path against the field bag. A path may address a direct
// field or one level of nesting, e.g. "contact.name".
func (r Recipient) Field(path string) (string, bool) {
	if r.Fields == nil {
		return "", false
	}

	if value, ok := r.Fields[path]; ok {
		return stringify(value)
	}

	split := strings.SplitN(path, ".", 2)
	if len(split) != 2 {
		return "", false
	}

	nested, ok := r.Fields[split[0]].(map[string]interface{})
	if !ok {
		return "", false
	}

	value, ok := nested[split[1]]
	if !ok {
		return "", false
	}

	return stringify(value)
}

func stringify(value interface{}) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false

	case string:
		return v, true

	default:
		return fmt.Sprint(v), true
	}
}

// RecipientRepository resolves recipients referenced by automation states.
type RecipientRepository interface {
	Get(id string) (Recipient, error)
}
