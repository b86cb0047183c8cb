package sync

import "errors"

var (
	ErrDisallowedTable  = errors.New("table is not allowed for sync")
	ErrInvalidStrategy  = errors.New("unknown conflict resolution strategy")
	ErrConflictNotFound = errors.New("conflict not found")
	ErrConflictResolved = errors.New("conflict already resolved")
	ErrRecordWithoutID  = errors.New("record has no id field")
)
