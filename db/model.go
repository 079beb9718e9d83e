package db

// ===========================
// TEAM DIRECTORY MODELS
// ===========================

// TeamEntry maps a team name to its credential reference and the provider
// groups it owns. Entries are immutable after load; resolution walks them in
// load order.
type TeamEntry struct {
	Name          string   `json:"name"`
	CredentialRef string   `json:"credential_ref"`
	Groups        []string `json:"groups"`
}

// ===========================
// SNAPSHOT MODELS
// ===========================

// CacheEntry is one persisted (shift, user) row of the on-call snapshot.
// UserID is stored lowercased so lookups are case-insensitive.
type CacheEntry struct {
	GroupID   string `json:"group_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Timezone  string `json:"timezone"`
	UserID    string `json:"user_id"`
	FullName  string `json:"full_name"`
}

// ===========================
// REQUEST MODELS
// ===========================

// ScheduleQueryRequest selects a team by provider group, team key, or
// credential reference. At least one must be set; they are checked in that
// order.
type ScheduleQueryRequest struct {
	Group     string `json:"group"`
	Team      string `json:"team"`
	EnvPrefix string `json:"env_prefix"`
}
