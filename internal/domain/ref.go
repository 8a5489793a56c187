package domain

import "fmt"

// RefKind identifies which collection a Ref points into.
type RefKind string

const (
	RefAsk   RefKind = "ask"
	RefOffer RefKind = "offer"
	RefReply RefKind = "reply"
	RefChat  RefKind = "chat"
	RefUser  RefKind = "user"
)

// Valid checks if the kind is one of the known collections.
func (k RefKind) Valid() bool {
	switch k {
	case RefAsk, RefOffer, RefReply, RefChat, RefUser:
		return true
	default:
		return false
	}
}

// Ref is a typed reference to a document in another collection.
// It replaces ad-hoc "id or populated object" values with one canonical
// shape: the target kind plus its ID. Snapshots of the referenced document
// are carried separately (see notify.FeedItem), never inside the Ref.
type Ref struct {
	Kind RefKind `json:"kind"`
	ID   string  `json:"id"`
}

// NewRef creates a reference to the given document.
func NewRef(kind RefKind, id string) Ref {
	return Ref{Kind: kind, ID: id}
}

// IsZero reports whether the reference is unset.
func (r Ref) IsZero() bool {
	return r.ID == ""
}

// String returns a stable "kind:id" form, used in composite index keys.
func (r Ref) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}
