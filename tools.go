//go:build tools

// Package tools pins the code generators run by go generate, mockgen for
// the mocks of contract/, in go.mod.
package collab_gateway

import (
	_ "go.uber.org/mock/mockgen"
)
