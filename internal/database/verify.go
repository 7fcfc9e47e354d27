package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// LedgerReport counts vote rows that break the ledger rules. The schema
// enforces all of them; a non-zero count means the table was written around
// the constraints (bulk loads, restores, manual fixes).
type LedgerReport struct {
	Votes            int64
	OutOfRange       int64
	BadTarget        int64
	DuplicatePost    int64
	DuplicateComment int64
	OrphanedPost     int64
	OrphanedComment  int64
}

// Clean reports whether no violation was found.
func (r LedgerReport) Clean() bool {
	return r.OutOfRange+r.BadTarget+r.DuplicatePost+r.DuplicateComment+r.OrphanedPost+r.OrphanedComment == 0
}

var ledgerChecks = []struct {
	name  string
	query string
	field func(*LedgerReport) *int64
}{
	{"votes", `SELECT COUNT(*) FROM votes`,
		func(r *LedgerReport) *int64 { return &r.Votes }},
	{"out of range", `SELECT COUNT(*) FROM votes WHERE value NOT IN (-1, 0, 1)`,
		func(r *LedgerReport) *int64 { return &r.OutOfRange }},
	{"bad target", `SELECT COUNT(*) FROM votes WHERE (post_id IS NULL) = (comment_id IS NULL)`,
		func(r *LedgerReport) *int64 { return &r.BadTarget }},
	{"duplicate post", `SELECT COUNT(*) FROM (SELECT user_id, post_id FROM votes WHERE post_id IS NOT NULL GROUP BY user_id, post_id HAVING COUNT(*) > 1) d`,
		func(r *LedgerReport) *int64 { return &r.DuplicatePost }},
	{"duplicate comment", `SELECT COUNT(*) FROM (SELECT user_id, comment_id FROM votes WHERE comment_id IS NOT NULL GROUP BY user_id, comment_id HAVING COUNT(*) > 1) d`,
		func(r *LedgerReport) *int64 { return &r.DuplicateComment }},
	{"orphaned post", `SELECT COUNT(*) FROM votes v WHERE v.post_id IS NOT NULL AND NOT EXISTS (SELECT 1 FROM posts p WHERE p.id = v.post_id)`,
		func(r *LedgerReport) *int64 { return &r.OrphanedPost }},
	{"orphaned comment", `SELECT COUNT(*) FROM votes v WHERE v.comment_id IS NOT NULL AND NOT EXISTS (SELECT 1 FROM comments c WHERE c.id = v.comment_id)`,
		func(r *LedgerReport) *int64 { return &r.OrphanedComment }},
}

// VerifyVoteLedger scans the votes table. Duplicate counts are per
// (voter, target) pair, not per row.
func VerifyVoteLedger(ctx context.Context, db *gorm.DB) (LedgerReport, error) {
	var report LedgerReport
	for _, check := range ledgerChecks {
		if err := db.WithContext(ctx).Raw(check.query).Scan(check.field(&report)).Error; err != nil {
			return report, fmt.Errorf("ledger check %s: %w", check.name, err)
		}
	}
	return report, nil
}
