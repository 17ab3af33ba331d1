// Package model contains domain models passed between layers.
package model

// Activity is one extracurricular activity as served by GET /activities.
type Activity struct {
	Name            string   `json:"-"` // unique key in the catalog
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"` // registration order
}

// SpotsLeft is MaxParticipants minus the current participant count.
// Upstream does not guarantee the capacity invariant, so it can be negative.
func (a Activity) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

// Catalog holds activities in the order the API returned them.
type Catalog []Activity

// Len returns the number of activities.
func (c Catalog) Len() int { return len(c) }

// Names returns the activity names in catalog order.
func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i, a := range c {
		names[i] = a.Name
	}
	return names
}
