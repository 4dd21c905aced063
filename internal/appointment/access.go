package appointment

import "github.com/google/uuid"

// CanAccess reports whether userID may read or cancel a. A user sees an
// appointment they booked, or one booked with a practitioner they own.
// byPractitioner is true when access comes through practitioner ownership.
func CanAccess(a *Appointment, userID uuid.UUID, ownedPractitionerIDs []uuid.UUID) (byPractitioner, ok bool) {
	for _, pid := range ownedPractitionerIDs {
		if pid == a.PractitionerID {
			return true, true
		}
	}
	if a.UserID == userID {
		return false, true
	}
	return false, false
}
