package controllers

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/synergychantilly/cgresbox-backend/app/models"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/docstatus"
)

var validate = validator.New()

// statusView is the read shape of a status row with the derived
// projections attached. Expiry is always computed at read time.
type statusView struct {
	models.UserDocumentStatus
	DisplayStatus  string `json:"display_status"`
	IsExpired      bool   `json:"is_expired"`
	IsExpiringSoon bool   `json:"is_expiring_soon"`
}

func toStatusViews(rows []models.UserDocumentStatus, now time.Time) []statusView {
	views := make([]statusView, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		views = append(views, statusView{
			UserDocumentStatus: *row,
			DisplayStatus:      docstatus.DisplayStatus(row, now),
			IsExpired:          docstatus.IsExpired(row, now),
			IsExpiringSoon:     docstatus.IsExpiringSoon(row, now, docstatus.DefaultExpiringSoonDays),
		})
	}
	return views
}
