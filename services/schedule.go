package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phonginreallife/ocmwrap/db"
	"github.com/phonginreallife/ocmwrap/internal/ocm"
)

// maxFetchWorkers caps the concurrent upstream requests per query.
const maxFetchWorkers = 5

// scheduleWindowDays pads the query window around the target date. Upstream
// date filtering is unreliable, so a wide window is fetched and filtered here.
const scheduleWindowDays = 30

// upcomingWindowDays is the forward window for the full upcoming listing.
const upcomingWindowDays = 365

// ScheduleRecord is one resolved shift with its projected users.
type ScheduleRecord struct {
	GroupID   string            `json:"group_id"`
	Role      string            `json:"role,omitempty"`
	Date      *string           `json:"date,omitempty"`
	Timezone  *string           `json:"timezone,omitempty"`
	StartTime string            `json:"start_time"`
	EndTime   string            `json:"end_time"`
	Users     []ocm.DisplayUser `json:"users"`
	Summary   string            `json:"summary"`
}

// ScheduleResult is the answer to a schedule query. An empty Records with a
// Message is the valid "nothing scheduled" outcome, not an error.
type ScheduleResult struct {
	Team    string           `json:"team"`
	Group   string           `json:"group,omitempty"`
	Date    string           `json:"date,omitempty"`
	Records []ScheduleRecord `json:"records"`
	Message string           `json:"message,omitempty"`
}

// ScheduleService resolves who is on call by querying upstream windows.
type ScheduleService struct {
	Directory *Directory
	Client    *ocm.Client
}

func NewScheduleService(directory *Directory, client *ocm.Client) *ScheduleService {
	return &ScheduleService{
		Directory: directory,
		Client:    client,
	}
}

// GetSchedule answers "who is on call on this date" for the selected team or
// group. The window is padded ±30 days and filtered locally to the target day.
func (s *ScheduleService) GetSchedule(ctx context.Context, req db.ScheduleQueryRequest, date string) (ScheduleResult, error) {
	if req.Group == "" && req.Team == "" && req.EnvPrefix == "" {
		return ScheduleResult{}, &ValidationError{Msg: "provide group, team, or env_prefix"}
	}

	day, err := ParseScheduleDate(date)
	if err != nil {
		return ScheduleResult{}, err
	}

	entry, err := s.Directory.Resolve(req.Group, req.Team, req.EnvPrefix)
	if err != nil {
		return ScheduleResult{}, err
	}
	creds, err := ResolveCredentials(entry)
	if err != nil {
		return ScheduleResult{}, err
	}

	groups := entry.Groups
	if req.Group != "" {
		groups = []string{req.Group}
	}

	from := day.AddDate(0, 0, -scheduleWindowDays)
	to := day.AddDate(0, 0, scheduleWindowDays)
	windows := fetchGroupWindows(ctx, s.Client, creds, groups, from, to)

	dayStart := day
	dayEnd := day.AddDate(0, 0, 1)

	records := make([]ScheduleRecord, 0)
	for i, buckets := range windows {
		group := groups[i]
		for _, rec := range ocm.Normalize(buckets) {
			if rec.GroupID != group {
				continue
			}
			if !ocm.OverlapsDay(rec.StartTime, rec.EndTime, dayStart, dayEnd) {
				continue
			}
			records = append(records, buildRecord(rec))
		}
	}

	result := ScheduleResult{
		Team:    entry.Name,
		Group:   req.Group,
		Date:    day.Format(ocm.DateLayout),
		Records: records,
	}
	if len(records) == 0 {
		result.Message = fmt.Sprintf("No assignment found for %s on %s.", queryTarget(req, entry), result.Date)
	}
	return result, nil
}

// GetUpcoming lists every shift in the next year for the selected team or
// group, without day filtering.
func (s *ScheduleService) GetUpcoming(ctx context.Context, req db.ScheduleQueryRequest) (ScheduleResult, error) {
	if req.Group == "" && req.Team == "" && req.EnvPrefix == "" {
		return ScheduleResult{}, &ValidationError{Msg: "provide group, team, or env_prefix"}
	}

	entry, err := s.Directory.Resolve(req.Group, req.Team, req.EnvPrefix)
	if err != nil {
		return ScheduleResult{}, err
	}
	creds, err := ResolveCredentials(entry)
	if err != nil {
		return ScheduleResult{}, err
	}

	groups := entry.Groups
	if req.Group != "" {
		groups = []string{req.Group}
	}

	now := time.Now().UTC()
	windows := fetchGroupWindows(ctx, s.Client, creds, groups, now, now.AddDate(0, 0, upcomingWindowDays))

	records := make([]ScheduleRecord, 0)
	for i, buckets := range windows {
		group := groups[i]
		for _, rec := range ocm.Normalize(buckets) {
			if rec.GroupID != group {
				continue
			}
			records = append(records, buildRecord(rec))
		}
	}

	result := ScheduleResult{
		Team:    entry.Name,
		Group:   req.Group,
		Records: records,
	}
	if len(records) == 0 {
		result.Message = fmt.Sprintf("No upcoming shifts found for %s.", queryTarget(req, entry))
	}
	return result, nil
}

// fetchGroupWindows fetches one window per group concurrently, no more workers
// than groups and never more than maxFetchWorkers. A failed fetch is logged and
// contributes an empty window so one group's outage never blocks the others.
func fetchGroupWindows(ctx context.Context, client *ocm.Client, creds ocm.Credentials, groups []string, from, to time.Time) [][]ocm.Bucket {
	limit := len(groups)
	if limit > maxFetchWorkers {
		limit = maxFetchWorkers
	}

	windows := make([][]ocm.Bucket, len(groups))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, group := range groups {
		g.Go(func() error {
			buckets, err := client.FetchWindow(ctx, creds, from, to, group)
			if err != nil {
				log.Printf("⚠️ Upstream fetch failed for group %s: %v", group, err)
				return nil
			}
			windows[i] = buckets
			return nil
		})
	}
	_ = g.Wait()
	return windows
}

// ParseScheduleDate normalizes user-supplied dates to a UTC day. Separator
// characters are stripped; the remainder must be exactly eight digits naming a
// real calendar date.
func ParseScheduleDate(input string) (time.Time, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '-', '/', '.', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(input))

	if len(cleaned) != 8 {
		return time.Time{}, &ValidationError{Msg: fmt.Sprintf("date must be 8 digits (YYYYMMDD), got %q", input)}
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return time.Time{}, &ValidationError{Msg: fmt.Sprintf("date must be 8 digits (YYYYMMDD), got %q", input)}
		}
	}

	day, err := time.Parse(ocm.DateLayout, cleaned)
	if err != nil {
		return time.Time{}, &ValidationError{Msg: fmt.Sprintf("%s is not a real calendar date", cleaned)}
	}
	return day, nil
}

// RoleForGroup derives the rotation role from the group naming convention.
func RoleForGroup(groupID string) string {
	switch {
	case strings.HasSuffix(groupID, "-Primary"):
		return "Primary"
	case strings.HasSuffix(groupID, "-Secondary"), strings.HasSuffix(groupID, "-Standby"):
		return "Standby"
	default:
		return ""
	}
}

func buildRecord(rec ocm.ShiftRecord) ScheduleRecord {
	users := ocm.ProjectUsers(rec.Users)
	name := ""
	if len(users) > 0 {
		name = users[0].Name
	}
	summary := fmt.Sprintf("%s: %s — %s → %s",
		rec.GroupID, name, clockPart(rec.StartTime), clockPart(rec.EndTime))

	return ScheduleRecord{
		GroupID:   rec.GroupID,
		Role:      RoleForGroup(rec.GroupID),
		Date:      rec.Date,
		Timezone:  rec.Timezone,
		StartTime: rec.StartTime,
		EndTime:   rec.EndTime,
		Users:     users,
		Summary:   summary,
	}
}

// clockPart extracts HH:MM from an ISO timestamp (characters 11 through 16).
func clockPart(iso string) string {
	if len(iso) <= 11 {
		return ""
	}
	if len(iso) < 16 {
		return iso[11:]
	}
	return iso[11:16]
}

func queryTarget(req db.ScheduleQueryRequest, entry db.TeamEntry) string {
	if req.Group != "" {
		return req.Group
	}
	return "team " + entry.Name
}
