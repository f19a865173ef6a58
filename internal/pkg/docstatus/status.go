// Package docstatus holds the pure derived-state calculations over
// UserDocumentStatus rows: the forward-only status ordering used by webhook
// reconciliation and the expiry projections used on read paths. Nothing in
// this package touches storage.
package docstatus

import (
	"strings"
	"time"

	"github.com/synergychantilly/cgresbox-backend/app/models"
)

// DefaultExpiringSoonDays is the lead window for the "expiring soon" flag.
const DefaultExpiringSoonDays = 30

func normalizeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case models.DocStatusViewed:
		return models.DocStatusViewed
	case models.DocStatusStarted:
		return models.DocStatusStarted
	case models.DocStatusCompleted:
		return models.DocStatusCompleted
	case models.DocStatusDeclined:
		return models.DocStatusDeclined
	default:
		return models.DocStatusNotStarted
	}
}

// Rank maps a stored status onto the fixed forward order of the lifecycle.
// declined shares the terminal rank with completed: neither may be replaced
// by the other once reached.
func Rank(status string) int {
	switch normalizeStatus(status) {
	case models.DocStatusViewed:
		return 1
	case models.DocStatusStarted:
		return 2
	case models.DocStatusCompleted, models.DocStatusDeclined:
		return 3
	default:
		return 0
	}
}

// IsForward reports whether moving from current to target is a strictly
// forward transition. Duplicate and stale events rank equal or lower and
// must leave the stored status untouched.
func IsForward(current, target string) bool {
	return Rank(target) > Rank(current)
}

// IsTerminal reports whether a status can never advance again.
func IsTerminal(status string) bool {
	return Rank(status) >= 3
}

// ExpiresAt computes the validity deadline for a completion. Templates
// without an expiry window never expire.
func ExpiresAt(completedAt time.Time, expiryDays *int) *time.Time {
	if expiryDays == nil {
		return nil
	}
	t := completedAt.Add(time.Duration(*expiryDays) * 24 * time.Hour)
	return &t
}

// IsExpired reports whether the row's completion has lapsed at time now.
func IsExpired(row *models.UserDocumentStatus, now time.Time) bool {
	return row.ExpiresAt != nil && row.ExpiresAt.Before(now)
}

// IsExpiringSoon reports whether the row expires within thresholdDays of
// now. Already-expired rows are not "expiring soon".
func IsExpiringSoon(row *models.UserDocumentStatus, now time.Time, thresholdDays int) bool {
	if row.ExpiresAt == nil {
		return false
	}
	if !row.ExpiresAt.After(now) {
		return false
	}
	return row.ExpiresAt.Sub(now) <= time.Duration(thresholdDays)*24*time.Hour
}

// DisplayStatus is the status a reader should see: expired overrides
// whatever is stored, because expiry depends on wall-clock time and is
// never written back.
func DisplayStatus(row *models.UserDocumentStatus, now time.Time) string {
	if IsExpired(row, now) {
		return models.DocStatusExpired
	}
	return normalizeStatus(row.Status)
}
