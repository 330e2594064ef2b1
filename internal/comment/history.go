package comment

import "time"

// RecordEdit applies an author's edit to c. The previous body is appended to
// the history and newBody becomes current. The entry is stamped with now, or
// with the newest existing entry's time if now is earlier, so history stays
// ordered even across processes with skewed clocks.
//
// On error c is left untouched.
func RecordEdit(c *Comment, actingUserID, newBody string, now time.Time) error {
	if actingUserID != c.AuthorID {
		return ErrForbidden
	}
	if newBody == c.Body {
		return ErrNoOpEdit
	}

	at := now
	if n := len(c.BodyHistory); n > 0 && at.Before(c.BodyHistory[n-1].CreatedAt) {
		at = c.BodyHistory[n-1].CreatedAt
	}

	c.BodyHistory = append(c.BodyHistory, HistoryEntry{Body: c.Body, CreatedAt: at})
	c.Body = newBody
	return nil
}

// seedHistory records the body a comment was created with.
func seedHistory(c *Comment) {
	c.BodyHistory = []HistoryEntry{{Body: c.Body, CreatedAt: c.CreatedAt}}
}
