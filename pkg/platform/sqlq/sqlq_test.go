package sqlq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuery(t *testing.T) {
	t.Run("only present filters are applied", func(t *testing.T) {
		var q Query
		scanID, memberID := "tag-1", ""
		q.Where("company = ?", "acme").
			WhereIf(scanID != "", "scan_id = ?", scanID).
			WhereIf(memberID != "", "member_id = ?", memberID).
			WhereIf(true, "(scan_id = ? OR ticket_id = ?)", "x", "x")

		assert.Equal(t, " WHERE company = $1 AND scan_id = $2 AND (scan_id = $3 OR ticket_id = $4)", q.WhereSQL())
		assert.Equal(t, []any{"acme", "tag-1", "x", "x"}, q.Args())
	})

	t.Run("assignments precede filters in numbering", func(t *testing.T) {
		var q Query
		q.SetIf(true, "event_name", "Fest").SetIf(false, "tag_price", 2.0).Set("card_price", 5.0)
		q.Where("event_id = ?", "e1")
		assert.True(t, q.HasSets())
		assert.Equal(t, "event_name = $1, card_price = $2", q.SetSQL())
		assert.Equal(t, " WHERE event_id = $3", q.WhereSQL())
	})

	t.Run("paging", func(t *testing.T) {
		var first, second Query
		first.Page("created_at", 0, 30)
		second.Page("created_at", 2, 30)
		assert.Equal(t, " ORDER BY created_at LIMIT $1", first.SuffixSQL())
		assert.Equal(t, " ORDER BY created_at LIMIT $1 OFFSET $2", second.SuffixSQL())
		assert.Equal(t, []any{30, 60}, second.Args())
	})

	t.Run("empty query renders nothing", func(t *testing.T) {
		var q Query
		q.Page("x", 3, 0)
		assert.Empty(t, q.WhereSQL())
		assert.Empty(t, q.SuffixSQL())
		assert.False(t, q.HasSets())
	})
}
