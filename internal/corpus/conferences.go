package corpus

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownConference is returned for a name missing from the conference catalog.
var ErrUnknownConference = errors.New("unknown conference")

// Conferences maps a display name ("NeurIPS 2024") to its OpenReview submission invitation.
type Conferences map[string]string

// Invitation returns the invitation for name.
func (c Conferences) Invitation(name string) (string, error) {
	inv, ok := c[name]
	if !ok || inv == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownConference, name)
	}
	return inv, nil
}

// Names returns the conference names, newest first by lexical order.
func (c Conferences) Names() []string {
	names := make([]string, 0, len(c))
	for n := range c {
		names = append(names, n)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names
}

// ByIdentity finds the conference whose Identity matches identity.
func (c Conferences) ByIdentity(identity string) (string, bool) {
	for n := range c {
		if Identity(n) == identity {
			return n, true
		}
	}
	return "", false
}
