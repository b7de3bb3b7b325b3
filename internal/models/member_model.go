package models

// Member is one traveller in the trip's members field.
type Member struct {
	ID     string `json:"id" firestore:"id"`
	Name   string `json:"name" firestore:"name"`
	Title  string `json:"title,omitempty" firestore:"title,omitempty"` // e.g. "navigator", shown as "Buddy" when empty
	Avatar string `json:"avatar" firestore:"avatar"`                   // download URL
}

// CloneMembers returns a copy of members that can be mutated without touching the original.
func CloneMembers(members []Member) []Member {
	out := make([]Member, len(members))
	copy(out, members)
	return out
}

// FindMember returns the index of the member with id, or -1.
func FindMember(members []Member, id string) int {
	for i, m := range members {
		if m.ID == id {
			return i
		}
	}
	return -1
}
