package debate

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Transcript indexes contributions across debates in SQLite so they can be
// queried without walking every JSON document. It supplements the Manager;
// the engine works without it.
type Transcript struct {
	db *sql.DB
}

// TranscriptRow is one indexed contribution.
type TranscriptRow struct {
	DebateID  string
	Round     int
	AgentID   string
	AgentRole string
	Type      ContributionType
	Chars     int
	CreatedAt time.Time
}

// NewTranscript opens/creates the database at dbPath.
func NewTranscript(dbPath string) (*Transcript, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	t := &Transcript{db: db}
	if err := t.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return t, nil
}

func (t *Transcript) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS contributions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		debate_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		agent_id TEXT NOT NULL,
		agent_role TEXT,
		type TEXT NOT NULL,
		chars INTEGER,
		created_at TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_contributions_debate ON contributions(debate_id, round);
	`
	_, err := t.db.Exec(schema)
	return err
}

// Record indexes one contribution.
func (t *Transcript) Record(debateID string, round int, c Contribution) error {
	_, err := t.db.Exec(
		`INSERT INTO contributions (debate_id, round, agent_id, agent_role, type, chars, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		debateID, round, c.AgentID, c.AgentRole, string(c.Type), len(c.Content), c.CreatedAt,
	)
	return err
}

// ByDebate returns the indexed rows for one debate in insertion order.
func (t *Transcript) ByDebate(debateID string) ([]TranscriptRow, error) {
	rows, err := t.db.Query(
		`SELECT debate_id, round, agent_id, agent_role, type, chars, created_at
		 FROM contributions WHERE debate_id = ? ORDER BY id`,
		debateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTranscriptRows(rows)
}

// ByAgent returns every indexed contribution by one agent across debates.
func (t *Transcript) ByAgent(agentID string) ([]TranscriptRow, error) {
	rows, err := t.db.Query(
		`SELECT debate_id, round, agent_id, agent_role, type, chars, created_at
		 FROM contributions WHERE agent_id = ? ORDER BY id`,
		agentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTranscriptRows(rows)
}

// Close releases the database handle.
func (t *Transcript) Close() error {
	return t.db.Close()
}

func scanTranscriptRows(rows *sql.Rows) ([]TranscriptRow, error) {
	var result []TranscriptRow
	for rows.Next() {
		var row TranscriptRow
		var typ string
		if err := rows.Scan(&row.DebateID, &row.Round, &row.AgentID, &row.AgentRole, &typ, &row.Chars, &row.CreatedAt); err != nil {
			return nil, err
		}
		row.Type = ContributionType(typ)
		result = append(result, row)
	}
	return result, rows.Err()
}
