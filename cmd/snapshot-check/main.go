// Command snapshot-check inspects a wellbeing SQLite snapshot: it prints per
// bucket record counts and reports what the defensive normalization pass would
// repair, without modifying the database.
package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"wellbeingcore/internal/infra/persistence/memory"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("snapshot-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", "wellbeing.db", "path to the sqlite database")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	snapshot, err := readSnapshot(*dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "snapshot-check: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "snapshot version: %d\n", snapshot.Version)
	fmt.Fprintf(stdout, "students:        %d\n", len(snapshot.Students))
	fmt.Fprintf(stdout, "check_ins:       %d\n", len(snapshot.CheckIns))
	fmt.Fprintf(stdout, "journals:        %d\n", len(snapshot.Journals))
	fmt.Fprintf(stdout, "habits:          %d\n", len(snapshot.Habits))
	fmt.Fprintf(stdout, "messages:        %d\n", len(snapshot.Messages))
	fmt.Fprintf(stdout, "broadcasts:      %d\n", len(snapshot.Broadcasts))
	fmt.Fprintf(stdout, "safety_events:   %d\n", len(snapshot.SafetyEvents))
	fmt.Fprintf(stdout, "reports:         %d\n", len(snapshot.Reports))
	fmt.Fprintf(stdout, "config_requests: %d\n", len(snapshot.ConfigRequests))
	fmt.Fprintf(stdout, "groups:          %d\n", len(snapshot.Groups))

	migrated := memory.MigrateSnapshot(snapshot)
	repairs := diffCounts(snapshot, migrated)
	if len(repairs) == 0 {
		fmt.Fprintln(stdout, "normalization: clean")
	} else {
		fmt.Fprintln(stdout, "normalization would repair:")
		for _, r := range repairs {
			fmt.Fprintf(stdout, "  %s\n", r)
		}
	}
	return 0
}

func readSnapshot(path string) (memory.Snapshot, error) {
	if _, err := os.Stat(path); err != nil {
		return memory.Snapshot{}, fmt.Errorf("stat %s: %w", path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshot memory.Snapshot
	targets := map[string]any{
		"meta":            &snapshot.Version,
		"session":         &snapshot.Session,
		"school_config":   &snapshot.Config,
		"students":        &snapshot.Students,
		"check_ins":       &snapshot.CheckIns,
		"journals":        &snapshot.Journals,
		"habits":          &snapshot.Habits,
		"messages":        &snapshot.Messages,
		"broadcasts":      &snapshot.Broadcasts,
		"safety_events":   &snapshot.SafetyEvents,
		"reports":         &snapshot.Reports,
		"config_requests": &snapshot.ConfigRequests,
		"groups":          &snapshot.Groups,
	}
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return memory.Snapshot{}, fmt.Errorf("scan state: %w", err)
		}
		target, ok := targets[bucket]
		if !ok || len(payload) == 0 {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return memory.Snapshot{}, fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	if err := rows.Err(); err != nil {
		return memory.Snapshot{}, fmt.Errorf("iterate state: %w", err)
	}
	return snapshot, nil
}

func diffCounts(before, after memory.Snapshot) []string {
	var out []string
	add := func(name string, b, a int) {
		if b != a {
			out = append(out, fmt.Sprintf("%s: %d -> %d", name, b, a))
		}
	}
	add("students", len(before.Students), len(after.Students))
	add("check_ins", len(before.CheckIns), len(after.CheckIns))
	add("journals", len(before.Journals), len(after.Journals))
	add("habits", len(before.Habits), len(after.Habits))
	add("messages", len(before.Messages), len(after.Messages))
	add("broadcasts", len(before.Broadcasts), len(after.Broadcasts))
	add("safety_events", len(before.SafetyEvents), len(after.SafetyEvents))
	add("reports", len(before.Reports), len(after.Reports))
	add("config_requests", len(before.ConfigRequests), len(after.ConfigRequests))
	add("groups", len(before.Groups), len(after.Groups))
	if before.Version != after.Version {
		out = append(out, fmt.Sprintf("version: %d -> %d", before.Version, after.Version))
	}
	return out
}
