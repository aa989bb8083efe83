package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDialect_Rebind(t *testing.T) {
	q := "SELECT * FROM bins WHERE item_code = ? AND warehouse IN (?, ?)"

	assert.Equal(t, q, dialectSQLite.rebind(q))
	assert.Equal(t,
		"SELECT * FROM bins WHERE item_code = $1 AND warehouse IN ($2, $3)",
		dialectPostgres.rebind(q))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}
