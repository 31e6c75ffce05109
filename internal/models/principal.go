package models

import "github.com/google/uuid"

// PrincipalKind distinguishes the two classes of coordinator connection.
type PrincipalKind string

const (
	PrincipalPlayer PrincipalKind = "player"
	PrincipalServer PrincipalKind = "server"
)

// Principal is a verified identity bound to a connection.
type Principal struct {
	Kind PrincipalKind `json:"kind"`
	ID   uuid.UUID     `json:"id"`
}

// Topic returns the principal's canonical hub topic (player.<id> or server.<id>).
func (p Principal) Topic() string {
	return string(p.Kind) + "." + p.ID.String()
}
