// Command audit_check verifies the audit-trail invariants directly against
// the database. It is meant for operators after bulk imports or manual data
// surgery; a non-zero exit means at least one critical invariant is broken.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/webgis-caps/rocksample-api/pkg/config"
	"github.com/webgis-caps/rocksample-api/pkg/database"
)

type check struct {
	Name     string
	Query    string
	Critical bool
}

type result struct {
	Check      check
	Violations int
	Error      error
	Duration   time.Duration
}

// Each query counts rows violating one invariant; zero means healthy.
var checks = []check{
	{
		Name: "every sample has a submitted activity row",
		Query: `SELECT COUNT(*) FROM rock_samples rs
			WHERE NOT EXISTS (
				SELECT 1 FROM activity_logs al
				WHERE al.sample_id = rs.id AND al.activity_type = 'submitted')`,
		Critical: true,
	},
	{
		Name: "decided samples carry a verifier",
		Query: `SELECT COUNT(*) FROM rock_samples
			WHERE status IN ('verified', 'rejected') AND verified_by IS NULL`,
		Critical: true,
	},
	{
		Name: "pending samples carry no verifier",
		Query: `SELECT COUNT(*) FROM rock_samples
			WHERE status = 'pending' AND verified_by IS NOT NULL`,
		Critical: true,
	},
	{
		Name: "decided samples have a matching approval log",
		Query: `SELECT COUNT(*) FROM rock_samples rs
			WHERE rs.status IN ('verified', 'rejected') AND NOT EXISTS (
				SELECT 1 FROM approval_logs ap
				WHERE ap.sample_id = rs.id
				  AND ap.action = CASE rs.status WHEN 'verified' THEN 'approved' ELSE 'rejected' END)`,
		Critical: true,
	},
	{
		Name:     "archived samples are verified",
		Query:    `SELECT COUNT(*) FROM archives a JOIN rock_samples rs ON rs.id = a.sample_id WHERE rs.status <> 'verified'`,
		Critical: false,
	},
	{
		Name:     "at most one image per slot",
		Query:    `SELECT COUNT(*) FROM (SELECT sample_id, image_type FROM images GROUP BY sample_id, image_type HAVING COUNT(*) > 1) dup`,
		Critical: true,
	},
	{
		Name:     "at least one active admin exists",
		Query:    `SELECT CASE WHEN EXISTS (SELECT 1 FROM users WHERE role = 'admin' AND is_active) THEN 0 ELSE 1 END`,
		Critical: true,
	},
	{
		Name:     "version counters are positive",
		Query:    `SELECT COUNT(*) FROM rock_samples WHERE version < 1`,
		Critical: false,
	},
}

func main() {
	var timeout time.Duration
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "per-check query timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to postgres: %v\n", err)
		os.Exit(2)
	}
	defer db.Close()

	var (
		results  []result
		breaking int
		warnings int
	)
	for _, c := range checks {
		res := runCheck(db, c, timeout)
		if res.Error != nil || res.Violations > 0 {
			if c.Critical {
				breaking++
			} else {
				warnings++
			}
		}
		results = append(results, res)
	}

	printReport(results)

	fmt.Printf("Critical violations: %d, Warnings: %d\n", breaking, warnings)
	if breaking > 0 {
		os.Exit(1)
	}
}

func runCheck(db *sqlx.DB, c check, timeout time.Duration) result {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	res := result{Check: c}
	start := time.Now()
	res.Error = db.GetContext(ctx, &res.Violations, c.Query)
	res.Duration = time.Since(start)
	return res
}

func printReport(results []result) {
	fmt.Println("Audit Invariant Report")
	fmt.Println("======================")
	for _, res := range results {
		status := "OK"
		switch {
		case res.Error != nil:
			status = "ERROR"
		case res.Violations > 0:
			status = "FAIL"
		}
		fmt.Printf("[%s] %s (%s)\n", status, res.Check.Name, res.Duration)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
		} else if res.Violations > 0 {
			fmt.Printf("  Violations: %d | Critical: %t\n", res.Violations, res.Check.Critical)
		}
	}
}
