package letter

import (
	"time"

	"github.com/google/uuid"
)

type Visibility string

const (
	Sealed     Visibility = "SEALED"
	Unlockable Visibility = "UNLOCKABLE"
	Opened     Visibility = "OPENED"
)

// VisibilityAt is the time-lock state of l at now. It depends on nothing but
// its arguments.
func VisibilityAt(l *Letter, now time.Time) Visibility {
	if l.OpenedAt != nil {
		return Opened
	}
	if now.Before(l.UnlockAt) {
		return Sealed
	}
	return Unlockable
}

// senderPreview reports whether actor reads l as its author rather than as a
// recipient. Self letters have no author exemption.
func senderPreview(l *Letter, actor uuid.UUID) bool {
	return l.IsSender(actor) && !l.IsSelf()
}

// MayOpen reports whether actor may pass the time lock on l at now. The
// sender of a non-self letter always may; a recipient needs a bound identity
// and an unsealed letter.
func MayOpen(l *Letter, actor uuid.UUID, now time.Time) bool {
	if l.IsDeleted() {
		return false
	}
	if senderPreview(l, actor) {
		return true
	}
	if !l.IsBoundRecipient(actor) {
		return false
	}
	return VisibilityAt(l, now) != Sealed
}

// ShowsContent reports whether a read-only view of l may carry its content.
// Recipients only see content of OPENED letters; viewing never opens.
func ShowsContent(l *Letter, actor uuid.UUID, now time.Time) bool {
	if l.IsDeleted() {
		return false
	}
	if senderPreview(l, actor) {
		return true
	}
	return l.IsBoundRecipient(actor) && VisibilityAt(l, now) == Opened
}

// HidesSender reports whether the sender identity is withheld from actor.
func HidesSender(l *Letter, actor uuid.UUID) bool {
	return l.Anonymous && !l.IsSender(actor) && l.OpenedAt == nil
}
