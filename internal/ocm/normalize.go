package ocm

import "time"

// ShiftRecord is the flattened form of one shift, the unit the resolution
// engine filters and projects.
type ShiftRecord struct {
	GroupID   string       `json:"group_id"`
	Date      *string      `json:"date"`
	Timezone  *string      `json:"timezone"`
	StartTime string       `json:"start_time"`
	EndTime   string       `json:"end_time"`
	Users     []UserDetail `json:"users"`
}

// DisplayUser is the compact user projection returned to callers.
type DisplayUser struct {
	Name   string `json:"name"`
	UserID string `json:"user_id"`
	Mobile string `json:"mobile"`
}

// Normalize flattens the bucket -> detail -> shift hierarchy into one record
// per shift. The group identifier falls back from the detail to the enclosing
// bucket; missing Date/Timezone stay nil. The pass is total: malformed or
// empty pieces contribute zero records, never an error.
func Normalize(buckets []Bucket) []ShiftRecord {
	records := make([]ShiftRecord, 0)
	for _, bucket := range buckets {
		for _, detail := range bucket.SchedulingDetails {
			groupID := detail.GroupID
			if groupID == "" {
				groupID = bucket.GroupID
			}
			for _, shift := range detail.Shifts {
				records = append(records, ShiftRecord{
					GroupID:   groupID,
					Date:      optString(string(detail.Date)),
					Timezone:  detail.Timezone,
					StartTime: shift.StartTime,
					EndTime:   shift.EndTime,
					Users:     shift.UserDetails,
				})
			}
		}
	}
	return records
}

// OverlapsDay reports whether the [start, end) interval intersects the
// [dayStart, dayEnd) window. Both timestamps must parse as RFC 3339 instants
// with an explicit zone; anything else is excluded, never an error. Shifts
// spanning midnight or multiple days overlap every day they touch.
func OverlapsDay(startISO, endISO string, dayStart, dayEnd time.Time) bool {
	start, err := time.Parse(time.RFC3339, startISO)
	if err != nil {
		return false
	}
	end, err := time.Parse(time.RFC3339, endISO)
	if err != nil {
		return false
	}
	return start.Before(dayEnd) && end.After(dayStart)
}

// ProjectUsers reduces raw user details to display entries. Name prefers
// FullName, falls back to UserId, and stays empty when both are missing.
func ProjectUsers(users []UserDetail) []DisplayUser {
	out := make([]DisplayUser, 0, len(users))
	for _, u := range users {
		name := u.FullName
		if name == "" {
			name = u.UserID
		}
		out = append(out, DisplayUser{
			Name:   name,
			UserID: u.UserID,
			Mobile: u.MobileNumber,
		})
	}
	return out
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
