package core

import "github.com/google/uuid"

// NewID returns a random identifier for runs and capability requests.
func NewID() string { return uuid.NewString() }
