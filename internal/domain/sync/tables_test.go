package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTable(t *testing.T) {
	for _, table := range Tables {
		parsed, err := ParseTable(string(table))
		assert.NoError(t, err)
		assert.Equal(t, table, parsed)
	}
}

func TestParseTable_Disallowed(t *testing.T) {
	tests := []string{"employees", "users", "customers; DROP TABLE customers", ""}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTable(name)
			assert.ErrorIs(t, err, ErrDisallowedTable)
		})
	}
}

func TestIsAllowed(t *testing.T) {
	assert.True(t, IsAllowed("customers"))
	assert.True(t, IsAllowed("payments"))
	assert.False(t, IsAllowed("Customers"))
	assert.False(t, IsAllowed("audit_log"))
}

func TestParseStrategy(t *testing.T) {
	for _, name := range []string{"latest_wins", "server_wins", "client_wins", "manual"} {
		strategy, err := ParseStrategy(name)
		assert.NoError(t, err)
		assert.Equal(t, Strategy(name), strategy)
	}

	_, err := ParseStrategy("newest")
	assert.ErrorIs(t, err, ErrInvalidStrategy)

	_, err = ParseStrategy("")
	assert.ErrorIs(t, err, ErrInvalidStrategy)
}
