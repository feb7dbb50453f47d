package supervisor

import "github.com/google/uuid"

// Identifier is an opaque, process-unique value identifying a supervisor or
// a worker group. It is comparable and therefore usable as a map key.
type Identifier struct {
	uuid uuid.UUID
}

// NewIdentifier returns a fresh, process-unique Identifier.
func NewIdentifier() Identifier {
	return Identifier{uuid: uuid.New()}
}

// String returns the canonical textual form of the identifier.
func (id Identifier) String() string {
	return id.uuid.String()
}

// IsZero reports whether id is the zero value, i.e. was never assigned.
func (id Identifier) IsZero() bool {
	return id.uuid == uuid.Nil
}

// ParseIdentifier parses the canonical textual form produced by String back
// into an Identifier. It exists for transports that must serialize
// identifiers onto the wire, such as transport/natsbroadcast.
func ParseIdentifier(s string) (Identifier, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Identifier{}, err
	}
	return Identifier{uuid: u}, nil
}
