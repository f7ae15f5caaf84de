package feature

import (
	"fmt"
	"strings"
)

// Event feature representing recurring spans of time, such as holidays, where demand is
// expected to shift by a constant amount
type Event struct {
	Name string `json:"name"`
}

// NewEvent creates a new event instance given a name
func NewEvent(name string) *Event {
	return &Event{name}
}

// String returns the string representation of the event feature
func (e Event) String() string {
	return fmt.Sprintf("event_%s", e.Name)
}

func (e Event) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return e.Name, true
	}
	return "", false
}

// Type returns the type of this feature
func (e Event) Type() FeatureType {
	return FeatureTypeEvent
}

func (e Event) Decode() map[string]string {
	return map[string]string{"name": e.Name}
}
