package policyfeed

import (
	"fmt"

	"xdao.co/villages/policyupdate"
)

const (
	MinPageLimit = 1
	MaxPageLimit = 500
)

// ErrLimitOutOfRange is returned by Paginate when limit falls outside
// [MinPageLimit, MaxPageLimit].
var ErrLimitOutOfRange = fmt.Errorf("policyfeed: limit must be in [%d, %d]", MinPageLimit, MaxPageLimit)

// Paginate returns the page of list starting just after cursor (the
// policy_hash of the last item of the previous page, or "" for the
// first page), up to limit items, plus the next cursor ("" if
// exhausted). list is assumed already sorted by (created_at,
// policy_hash); Paginate does not re-sort it.
func Paginate(list []policyupdate.Update, cursor string, limit int) (page []policyupdate.Update, nextCursor string, err error) {
	if limit < MinPageLimit || limit > MaxPageLimit {
		return nil, "", ErrLimitOutOfRange
	}

	start := 0
	if cursor != "" {
		found := false
		for i, u := range list {
			h, _ := u["policy_hash"].(string)
			if h == cursor {
				start = i + 1
				found = true
				break
			}
		}
		if !found {
			// Unknown cursor: no page to continue from.
			return nil, "", nil
		}
	}

	end := start + limit
	if end > len(list) {
		end = len(list)
	}
	if start >= len(list) {
		return nil, "", nil
	}
	page = list[start:end]
	if end < len(list) {
		h, _ := page[len(page)-1]["policy_hash"].(string)
		nextCursor = h
	}
	return page, nextCursor, nil
}
