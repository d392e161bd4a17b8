// Package domain contains core concepts of the collaboration gateway.
// No runtime, network, or storage logic should be added here.
package domain

type PrincipalID string

// Principal is the authenticated identity attached to a connection.
// It never changes for the lifetime of the connection.
type Principal struct {
	ID          PrincipalID
	DisplayName string
	Email       string
}
