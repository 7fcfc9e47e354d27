package cache

import (
	"fmt"
	"time"
)

// Key families, used as metric labels.
const (
	FamilyTopSubs = "top_subs"
)

const topSubsKeyPattern = "subs:top:*"

// TopSubsTTL bounds how stale the community ranking may be.
const TopSubsTTL = 60 * time.Second

// TopSubsKey is the cache key for the ranking truncated to limit entries.
func TopSubsKey(limit int) string {
	return fmt.Sprintf("subs:top:%d", limit)
}
