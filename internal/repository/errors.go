package repository

import "errors"

// ErrStateConflict is returned when a conditional update matched no rows
// because the row was no longer in the expected state. Callers treat this
// as a lost race, not as a missing row.
var ErrStateConflict = errors.New("entity not in expected state")
