package connection

import (
	"slices"

	"marketmapper/auth"
)

// Relations is the connection state stored on one user row. Each slice is a
// set of user ids: order is insertion order and ids never repeat.
type Relations struct {
	UserID string
	// Pending holds users who asked UserID to connect.
	Pending []string
	// Sent holds users UserID asked to connect.
	Sent        []string
	Connections []string
}

// Graph is Relations with every id resolved to a public user view.
type Graph struct {
	Pending     []auth.Summary
	Sent        []auth.Summary
	Connections []auth.Summary
}

// RequestPolicy tunes RequestConnection for an already pending pair.
type RequestPolicy struct {
	RejectPending bool
}

func contains(set []string, id string) bool {
	return slices.Contains(set, id)
}

func add(set []string, id string) []string {
	if contains(set, id) {
		return set
	}
	return append(set, id)
}

func remove(set []string, id string) []string {
	return slices.DeleteFunc(set, func(v string) bool { return v == id })
}
