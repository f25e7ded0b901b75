package campaign

import "time"

// Template is a raw message body with zero or more placeholders. The number
// of placeholders is derived by scanning the body, never configured.
type Template struct {
	TemplateId string `json:"id"`

	Body    string  `json:"body"`
	Channel Channel `json:"channel"`

	Mapping VariableMapping `json:"mapping"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type MappingKind uint

const (
	MappingStatic MappingKind = iota
	MappingFieldReference
)

// MappingEntry binds one placeholder position to either a fixed value or a
// recipient field path.
type MappingEntry struct {
	Kind  MappingKind `json:"kind"`
	Value string      `json:"value"`
}

func Static(value string) MappingEntry {
	return MappingEntry{Kind: MappingStatic, Value: value}
}

func FieldReference(path string) MappingEntry {
	return MappingEntry{Kind: MappingFieldReference, Value: path}
}

// VariableMapping is ordered, one entry per placeholder position. Entries
// beyond the template's placeholder count are ignored.
type VariableMapping []MappingEntry

// Personalized reports whether any entry reads from the recipient, which
// forces per-recipient rendering instead of a provider batch call.
func (m VariableMapping) Personalized() bool {
	for _, entry := range m {
		if entry.Kind == MappingFieldReference {
			return true
		}
	}

	return false
}
