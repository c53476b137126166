// Command score_audit recomputes every student's disciplinary score from
// the stored commendation and sanction history and compares it against the
// ledger value on the student row. Drifted rows are reported; with -fix the
// recomputed value is written back.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type studentRow struct {
	ID       string  `db:"id"`
	FullName string  `db:"full_name"`
	Score    float64 `db:"disciplinary_score"`
}

type drift struct {
	StudentID string
	FullName  string
	Stored    float64
	Expected  float64
}

func main() {
	var (
		dsn       string
		seed      float64
		tolerance float64
		fix       bool
		timeout   time.Duration
	)

	flag.StringVar(&dsn, "dsn", os.Getenv("DATABASE_URL"), "Postgres connection string")
	flag.Float64Var(&seed, "seed", 8.0, "score every student starts the year with")
	flag.Float64Var(&tolerance, "tolerance", 0.001, "absolute difference treated as a match")
	flag.BoolVar(&fix, "fix", false, "write the recomputed score back to drifted rows")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "overall run timeout")
	flag.Parse()

	if dsn == "" {
		log.Fatal("no DSN: pass -dsn or set DATABASE_URL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer db.Close()

	drifts, checked, err := auditScores(ctx, db, seed, tolerance)
	if err != nil {
		log.Fatalf("audit failed: %v", err)
	}

	printReport(drifts, checked)

	if fix && len(drifts) > 0 {
		if err := fixScores(ctx, db, drifts); err != nil {
			log.Fatalf("fix failed: %v", err)
		}
		fmt.Printf("Rewrote %d rows\n", len(drifts))
		return
	}
	if len(drifts) > 0 {
		os.Exit(1)
	}
}

func auditScores(ctx context.Context, db *sqlx.DB, seed, tolerance float64) ([]drift, int, error) {
	var students []studentRow
	if err := db.SelectContext(ctx, &students,
		"SELECT id, full_name, disciplinary_score FROM students ORDER BY full_name"); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var drifts []drift
	for _, s := range students {
		expected, err := expectedScore(ctx, db, s.ID, seed)
		if err != nil {
			return nil, 0, fmt.Errorf("student %s: %w", s.ID, err)
		}
		if math.Abs(expected-s.Score) > tolerance {
			drifts = append(drifts, drift{
				StudentID: s.ID,
				FullName:  s.FullName,
				Stored:    s.Score,
				Expected:  expected,
			})
		}
	}
	return drifts, len(students), nil
}

// expectedScore rebuilds the ledger value from stored records: the seed,
// plus every commendation bonus, minus every sanction penalty. The stored
// per-record values are authoritative, not today's rule tables.
func expectedScore(ctx context.Context, db *sqlx.DB, studentID string, seed float64) (float64, error) {
	var bonus float64
	if err := db.GetContext(ctx, &bonus,
		"SELECT COALESCE(SUM(bonus_value), 0) FROM commendations WHERE student_id = $1", studentID); err != nil {
		return 0, fmt.Errorf("sum commendations: %w", err)
	}
	var penalty float64
	if err := db.GetContext(ctx, &penalty,
		"SELECT COALESCE(SUM(penalty_value), 0) FROM sanctions WHERE student_id = $1", studentID); err != nil {
		return 0, fmt.Errorf("sum sanctions: %w", err)
	}
	return seed + bonus - penalty, nil
}

func fixScores(ctx context.Context, db *sqlx.DB, drifts []drift) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, d := range drifts {
		if _, err := tx.ExecContext(ctx,
			"UPDATE students SET disciplinary_score = $1, updated_at = $2 WHERE id = $3",
			d.Expected, time.Now().UTC(), d.StudentID); err != nil {
			return fmt.Errorf("update %s: %w", d.StudentID, err)
		}
	}
	return tx.Commit()
}

func printReport(drifts []drift, checked int) {
	fmt.Println("Score Audit Report")
	fmt.Println("==================")
	fmt.Printf("Students checked: %d, drifted: %d\n", checked, len(drifts))
	for _, d := range drifts {
		fmt.Printf("[DRIFT] %s (%s)\n", d.FullName, d.StudentID)
		fmt.Printf("  Stored: %.2f | Expected: %.2f | Diff: %+.2f\n", d.Stored, d.Expected, d.Expected-d.Stored)
	}
}
