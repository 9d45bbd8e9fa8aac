package models

import "github.com/google/uuid"

// NewID returns a fresh UUID string for entity identifiers.
func NewID() string { return uuid.New().String() }
