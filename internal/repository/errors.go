package repository

import "errors"

// ErrNotFound is the repository-level sentinel for a missing row. The
// service layer translates it into a domain error, which keeps business
// logic decoupled from the database driver's own errors (sql.ErrNoRows).
var ErrNotFound = errors.New("repository: not found")
