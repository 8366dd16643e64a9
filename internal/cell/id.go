package cell

import (
	"fmt"
	"strings"
)

// ID is the storage key of a cell: its quadkey string. The level is part of
// the key, so IDs of different levels never collide.
type ID string

// ParseID validates s as a cell key.
func ParseID(s string) (ID, error) {
	if _, err := ParseQuadKey(s); err != nil {
		return "", err
	}
	return ID(s), nil
}

// Level returns the depth encoded in the key, or -1 if the key is malformed.
func (id ID) Level() int {
	_, path, ok := strings.Cut(string(id), "/")
	if !ok {
		return -1
	}
	return len(path)
}

// Check returns ErrInvalidLevel unless id is a well-formed key at level.
func (id ID) Check(level int) error {
	if _, err := ParseQuadKey(string(id)); err != nil {
		return err
	}
	if got := id.Level(); got != level {
		return fmt.Errorf("%w: %s is level %d, want %d", ErrInvalidLevel, id, got, level)
	}
	return nil
}

// Parent returns the key of the ancestor at level.
func (id ID) Parent(level int) (ID, error) {
	q, err := ParseQuadKey(string(id))
	if err != nil {
		return "", err
	}
	if level < 0 || level > q.Level() {
		return "", fmt.Errorf("%w: %s has no ancestor at level %d", ErrInvalidLevel, id, level)
	}
	return q.Parent(level).ID(), nil
}

func (id ID) String() string {
	return string(id)
}
