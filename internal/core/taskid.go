package core

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// taskIDPattern matches IDs produced by the default generator.
var taskIDPattern = regexp.MustCompile(`^task-[0-9a-f]{8}$`)

// TaskIDGenerator defines the interface for generating task IDs.
type TaskIDGenerator interface {
	GenerateTaskID() string
}

// uuidTaskIDGenerator derives task IDs from random UUIDs.
type uuidTaskIDGenerator struct{}

// NewTaskIDGenerator creates a TaskIDGenerator producing IDs of the form
// task-xxxxxxxx, where the suffix is the first eight hex digits of a UUIDv4.
func NewTaskIDGenerator() TaskIDGenerator {
	return uuidTaskIDGenerator{}
}

// GenerateTaskID returns a new task ID. Uniqueness is not guaranteed; the
// task manager retries on collision.
func (uuidTaskIDGenerator) GenerateTaskID() string {
	return "task-" + uuid.NewString()[:8]
}

// ValidateTaskID returns ErrInvalidID if id is not a well-formed task ID.
func ValidateTaskID(id string) error {
	if !taskIDPattern.MatchString(id) {
		return fmt.Errorf("task id %q: %w", id, ErrInvalidID)
	}
	return nil
}

// ValidateCharacterID returns ErrInvalidID unless id is positive.
func ValidateCharacterID(id int) error {
	if id <= 0 {
		return fmt.Errorf("character id %d: %w", id, ErrInvalidID)
	}
	return nil
}
