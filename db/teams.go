package db

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// LoadTeamEntries reads the team directory from the ocm_teams table, ordered
// by name so resolution precedence stays deterministic across restarts.
func LoadTeamEntries(pg *sql.DB) ([]TeamEntry, error) {
	rows, err := pg.Query(`
		SELECT name, credential_ref, groups
		FROM ocm_teams
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query team directory: %w", err)
	}
	defer rows.Close()

	var entries []TeamEntry
	for rows.Next() {
		var entry TeamEntry
		if err := rows.Scan(&entry.Name, &entry.CredentialRef, pq.Array(&entry.Groups)); err != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read team directory: %w", err)
	}

	return entries, nil
}
