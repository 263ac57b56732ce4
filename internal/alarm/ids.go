package alarm

import (
	"hash/fnv"

	"github.com/google/uuid"
)

// Identifier roles. Each role owns a disjoint code space so a medicine's
// notification, primary alarm and snooze alarm can never collide; within a
// role the code is a stable function of the medicine ID, so re-arming the same
// logical occurrence replaces the pending timer instead of duplicating it.
const (
	roleNotification = 1
	rolePrimary      = 2
	roleSnooze       = 3

	codeBits = 28
	codeMask = 1<<codeBits - 1
)

func derive(role int, id uuid.UUID) int {
	h := fnv.New32a()
	_, _ = h.Write(id[:])
	return role<<codeBits | int(h.Sum32()&codeMask)
}

// NotificationID is the stable notification identifier for a medicine.
func NotificationID(id uuid.UUID) int { return derive(roleNotification, id) }

// PrimaryID is the stable timer identifier for a medicine's primary occurrence.
func PrimaryID(id uuid.UUID) int { return derive(rolePrimary, id) }

// SnoozeID is the stable timer identifier for a medicine's snooze chain.
func SnoozeID(id uuid.UUID) int { return derive(roleSnooze, id) }
