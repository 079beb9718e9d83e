package services

import (
	"fmt"
	"os"

	"github.com/phonginreallife/ocmwrap/db"
	"github.com/phonginreallife/ocmwrap/internal/ocm"
)

// Directory is the team directory, loaded once at startup and read-only after.
type Directory struct {
	entries []db.TeamEntry
}

func NewDirectory(entries []db.TeamEntry) *Directory {
	return &Directory{entries: entries}
}

// Entries returns all teams in load order.
func (d *Directory) Entries() []db.TeamEntry {
	return d.entries
}

// Teams returns the configured team names in load order.
func (d *Directory) Teams() []string {
	names := make([]string, 0, len(d.entries))
	for _, entry := range d.entries {
		names = append(names, entry.Name)
	}
	return names
}

// Resolve finds the team entry for a selector. First match wins:
// group membership, else exact team key, else credential-reference match.
func (d *Directory) Resolve(group, teamKey, envPrefix string) (db.TeamEntry, error) {
	switch {
	case group != "":
		for _, entry := range d.entries {
			for _, g := range entry.Groups {
				if g == group {
					return entry, nil
				}
			}
		}
	case teamKey != "":
		for _, entry := range d.entries {
			if entry.Name == teamKey {
				return entry, nil
			}
		}
	case envPrefix != "":
		for _, entry := range d.entries {
			if entry.CredentialRef == envPrefix {
				return entry, nil
			}
		}
	}
	return db.TeamEntry{}, &ConfigurationError{
		Msg:        "no team matches the requested group/team/env_prefix",
		ValidTeams: d.Teams(),
	}
}

// ResolveCredentials reads the team's Basic auth pair from the environment.
// Both values must be present; secret values are never logged.
func ResolveCredentials(entry db.TeamEntry) (ocm.Credentials, error) {
	username := os.Getenv(entry.CredentialRef + "_USERNAME")
	password := os.Getenv(entry.CredentialRef + "_PASSWORD")
	if username == "" || password == "" {
		return ocm.Credentials{}, &ConfigurationError{
			Msg: fmt.Sprintf("credentials for team %s are not configured (need %s_USERNAME and %s_PASSWORD)",
				entry.Name, entry.CredentialRef, entry.CredentialRef),
		}
	}
	return ocm.Credentials{Username: username, Password: password}, nil
}
