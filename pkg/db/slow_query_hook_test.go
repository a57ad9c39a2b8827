package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	cases := []struct {
		sql, op, table string
	}{
		{"SELECT id FROM projects WHERE id = $1", "select", "projects"},
		{"\n  INSERT INTO milestones (title) VALUES ($1)", "insert", "milestones"},
		{"UPDATE invoices SET status = $1", "update", "invoices"},
		{"", "unknown", "unknown"},
		{"BEGIN", "begin", "unknown"},
	}
	for _, tc := range cases {
		op, table := describe(tc.sql)
		assert.Equal(t, tc.op, op, tc.sql)
		assert.Equal(t, tc.table, table, tc.sql)
	}
}
