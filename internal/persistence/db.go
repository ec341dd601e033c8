// Package persistence provides SQLite-based experiment storage.
package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/farmshare/internal/agents"
	"github.com/talgya/farmshare/internal/engine"
)

// DB wraps a SQLite connection for experiment persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS families (
		id INTEGER PRIMARY KEY,
		family_name TEXT NOT NULL,
		value_type TEXT NOT NULL,
		members INTEGER NOT NULL,
		labor_force INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rounds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		experiment_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		method TEXT NOT NULL,
		pool_total REAL NOT NULL,
		avg_satisfaction REAL NOT NULL,
		negotiation_success INTEGER NOT NULL,
		final_stage TEXT,
		sustainability REAL NOT NULL,
		allocation_json TEXT NOT NULL,
		report_json TEXT NOT NULL,
		productions_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS experiment_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rounds_experiment ON rounds(experiment_id, round);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveFamilies writes the full community roster (full replace).
func (db *DB) SaveFamilies(families []*agents.Agent) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM families"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO families
		(id, family_name, value_type, members, labor_force)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range families {
		_, err := stmt.Exec(f.ID, f.FamilyName, f.ValueType.String(), f.Members, f.LaborForce)
		if err != nil {
			return fmt.Errorf("insert family %d: %w", f.ID, err)
		}
	}

	return tx.Commit()
}

// LoadFamilies reads the community roster back, ordered by id.
func (db *DB) LoadFamilies() ([]*agents.Agent, error) {
	type familyRow struct {
		ID         int    `db:"id"`
		FamilyName string `db:"family_name"`
		ValueType  string `db:"value_type"`
		Members    int    `db:"members"`
		LaborForce int    `db:"labor_force"`
	}

	var rows []familyRow
	if err := db.conn.Select(&rows, "SELECT * FROM families ORDER BY id"); err != nil {
		return nil, err
	}

	families := make([]*agents.Agent, 0, len(rows))
	for _, r := range rows {
		vt, err := agents.ParseValueType(r.ValueType)
		if err != nil {
			return nil, fmt.Errorf("family %d: %w", r.ID, err)
		}
		families = append(families, &agents.Agent{
			ID:         agents.AgentID(r.ID),
			FamilyName: r.FamilyName,
			ValueType:  vt,
			Members:    r.Members,
			LaborForce: r.LaborForce,
		})
	}
	return families, nil
}

// SaveRound appends one completed round for the experiment.
func (db *DB) SaveRound(experimentID string, rr *engine.RoundResult) error {
	allocJSON, err := json.Marshal(rr.Allocation)
	if err != nil {
		return fmt.Errorf("marshal allocation: %w", err)
	}
	reportJSON, err := json.Marshal(rr.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	prodJSON, err := json.Marshal(rr.Productions)
	if err != nil {
		return fmt.Errorf("marshal productions: %w", err)
	}

	success := 0
	if rr.NegotiationSuccess {
		success = 1
	}

	_, err = db.conn.Exec(`INSERT INTO rounds
		(experiment_id, round, method, pool_total, avg_satisfaction,
		 negotiation_success, final_stage, sustainability,
		 allocation_json, report_json, productions_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		experimentID, rr.Round, rr.Method, rr.PoolTotal, rr.AverageSatisfaction,
		success, rr.FinalStage, rr.SustainabilityIndex,
		string(allocJSON), string(reportJSON), string(prodJSON),
	)
	if err != nil {
		return fmt.Errorf("insert round %d: %w", rr.Round, err)
	}
	return nil
}

// RoundRow is the stored form of a round, JSON payloads included.
type RoundRow struct {
	Round              int     `db:"round" json:"round"`
	Method             string  `db:"method" json:"method"`
	PoolTotal          float64 `db:"pool_total" json:"pool_total"`
	AvgSatisfaction    float64 `db:"avg_satisfaction" json:"avg_satisfaction"`
	NegotiationSuccess int     `db:"negotiation_success" json:"negotiation_success"`
	FinalStage         string  `db:"final_stage" json:"final_stage,omitempty"`
	Sustainability     float64 `db:"sustainability" json:"sustainability"`
	AllocationJSON     string  `db:"allocation_json" json:"allocation_json"`
	ReportJSON         string  `db:"report_json" json:"report_json"`
	ProductionsJSON    string  `db:"productions_json" json:"productions_json"`
}

// RecentRounds returns the most recent N rounds for the experiment,
// oldest first.
func (db *DB) RecentRounds(experimentID string, limit int) ([]RoundRow, error) {
	var rows []RoundRow
	err := db.conn.Select(&rows, `SELECT
		round, method, pool_total, avg_satisfaction, negotiation_success,
		final_stage, sustainability, allocation_json, report_json, productions_json
		FROM rounds WHERE experiment_id = ?
		ORDER BY round DESC LIMIT ?`,
		experimentID, limit,
	)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// SaveMeta stores a key-value pair in experiment metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO experiment_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM experiment_meta WHERE key = ?", key)
	return value, err
}
