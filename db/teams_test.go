package db

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTeamEntries(t *testing.T) {
	pg, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	defer pg.Close()

	rows := sqlmock.NewRows([]string{"name", "credential_ref", "groups"}).
		AddRow("oms-dba", "OCM", "{OMS-DBA-SEV1-Primary,OMS-DBA-SEV1-Secondary}").
		AddRow("payments", "PAY_OCM", "{PAY-SEV1-Primary}")

	mockDB.ExpectQuery("SELECT name, credential_ref, groups").WillReturnRows(rows)

	entries, err := LoadTeamEntries(pg)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "oms-dba", entries[0].Name)
	assert.Equal(t, "OCM", entries[0].CredentialRef)
	assert.Equal(t, []string{"OMS-DBA-SEV1-Primary", "OMS-DBA-SEV1-Secondary"}, entries[0].Groups)

	assert.Equal(t, "payments", entries[1].Name)
	assert.Equal(t, []string{"PAY-SEV1-Primary"}, entries[1].Groups)

	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestLoadTeamEntries_QueryError(t *testing.T) {
	pg, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	defer pg.Close()

	mockDB.ExpectQuery("SELECT name, credential_ref, groups").
		WillReturnError(errors.New("relation does not exist"))

	entries, loadErr := LoadTeamEntries(pg)
	assert.Error(t, loadErr)
	assert.Nil(t, entries)
}
