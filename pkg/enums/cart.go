package enums

import "strings"

// CartBackend names where a cart operation was applied.
type CartBackend string

const (
	CartBackendRemote CartBackend = "remote"
	CartBackendLocal  CartBackend = "local"
)

func (b CartBackend) String() string {
	return string(b)
}

// DuplicatePolicy decides what adding an item that is already present does.
type DuplicatePolicy string

const (
	DuplicateIncrement DuplicatePolicy = "increment"
	DuplicateReject    DuplicatePolicy = "reject"
)

// ParseDuplicatePolicy defaults to increment.
func ParseDuplicatePolicy(value string) DuplicatePolicy {
	if strings.EqualFold(strings.TrimSpace(value), string(DuplicateReject)) {
		return DuplicateReject
	}
	return DuplicateIncrement
}
