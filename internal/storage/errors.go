package storage

import "errors"

// Sentinel errors returned by the storage package.
var (
	ErrInvalidCharacter = errors.New("invalid character")
	ErrSlotNotFound     = errors.New("save slot not found")
	ErrInvalidSlot      = errors.New("invalid save slot")
	ErrSlotBusy         = errors.New("save slot is locked by another process")
)
