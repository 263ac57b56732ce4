package domain

import "errors"

// ErrNotFound is returned by repositories when a medicine does not exist.
// A queued status update hitting it is terminal: the medicine was deleted.
var ErrNotFound = errors.New("medicine not found")
