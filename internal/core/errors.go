package core

import "errors"

// Lifecycle errors. Every operation that returns one of these has left task,
// character and inventory state untouched.
var (
	ErrInvalidID         = errors.New("invalid identifier")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrTaskNotFound      = errors.New("task not found")
	ErrCharacterNotFound = errors.New("character not found")
	ErrTemplateNotFound  = errors.New("template not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTaskTerminal      = errors.New("task already finished")
	ErrCharacterBusy     = errors.New("character already has a task")
	ErrInsufficientSkill = errors.New("insufficient skill")
	ErrInsufficientItems = errors.New("insufficient items")
)
