package service

import "github.com/google/uuid"

// UUIDGenerator produces UUIDv4 identifiers for new aggregates. It satisfies
// the IDGenerator interfaces declared by the command and fanout packages.
type UUIDGenerator struct{}

// NewUUIDGenerator creates a new UUIDGenerator.
func NewUUIDGenerator() UUIDGenerator {
	return UUIDGenerator{}
}

// GenerateID returns a fresh UUID string.
func (UUIDGenerator) GenerateID() string {
	return uuid.NewString()
}
