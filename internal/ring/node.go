package ring

// NodeInfo is the immutable (id, address) pair identifying a ring member.
// Equality is by id, never by address.
type NodeInfo struct {
	ID      ID
	Address string
}

// Equal reports whether two NodeInfo values name the same ring member.
func (n NodeInfo) Equal(other NodeInfo) bool {
	return n.ID.Equal(other.ID)
}

// IsZero reports whether n is the unset NodeInfo (no address, zero id).
func (n NodeInfo) IsZero() bool {
	return n.Address == "" && n.ID.IsZero()
}
