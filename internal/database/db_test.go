package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementsCoverEveryTable(t *testing.T) {
	stmts := Statements()
	require.Len(t, stmts, 3)
	for i, table := range []string{"participants", "events", "registrations"} {
		assert.True(t, strings.HasPrefix(stmts[i], "CREATE TABLE IF NOT EXISTS "+table), stmts[i])
	}
}

func TestTicketIDIsUnique(t *testing.T) {
	assert.Contains(t, schema, "UNIQUE KEY uq_registrations_ticket (ticket_id)")
}
