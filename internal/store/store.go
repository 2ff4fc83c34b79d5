package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/logicfirst/tutor/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS problems (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		assignment_id TEXT NOT NULL,
		number INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		sample_input TEXT NOT NULL DEFAULT '',
		sample_output TEXT NOT NULL DEFAULT '',
		concepts TEXT NOT NULL DEFAULT '[]',
		UNIQUE (assignment_id, number)
	);

	CREATE TABLE IF NOT EXISTS problem_imports (
		hash TEXT PRIMARY KEY,
		imported_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		assignment_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		state TEXT NOT NULL,
		problem_number INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user_assignment
		ON sessions (user_id, assignment_id, status);

	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT '',
		mode TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns (session_id, id);

	CREATE TABLE IF NOT EXISTS validation_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		problem_number INTEGER NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_session
		ON validation_snapshots (session_id, problem_number, id);

	CREATE TABLE IF NOT EXISTS completions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		assignment_id TEXT NOT NULL,
		problem_number INTEGER NOT NULL,
		session_id TEXT NOT NULL,
		completed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, assignment_id, problem_number)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ImportProblems inserts a batch of problems unless the identical batch was
// imported before. The batch identity is the SHA-256 of its JSON encoding.
// Returns the number of problems upserted (0 when the batch is a duplicate).
func (s *Store) ImportProblems(problems []model.ProblemImport) (int, error) {
	raw, err := json.Marshal(problems)
	if err != nil {
		return 0, fmt.Errorf("encode problems: %w", err)
	}
	sum := sha256.Sum256(raw)
	hash := hex.EncodeToString(sum[:])

	var existing string
	err = s.db.QueryRow(`SELECT hash FROM problem_imports WHERE hash = ?`, hash).Scan(&existing)
	if err == nil {
		return 0, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	inserted := 0
	for _, p := range problems {
		concepts, err := json.Marshal(p.Concepts)
		if err != nil {
			return 0, fmt.Errorf("encode concepts: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO problems (assignment_id, number, title, description, sample_input, sample_output, concepts)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(assignment_id, number) DO UPDATE SET
				title = excluded.title,
				description = excluded.description,
				sample_input = excluded.sample_input,
				sample_output = excluded.sample_output,
				concepts = excluded.concepts`,
			p.AssignmentID, p.Number, p.Title, p.Description, p.SampleInput, p.SampleOutput, string(concepts),
		)
		if err != nil {
			return 0, fmt.Errorf("insert problem %s/%d: %w", p.AssignmentID, p.Number, err)
		}
		inserted++
	}

	if _, err := tx.Exec(`INSERT INTO problem_imports (hash) VALUES (?)`, hash); err != nil {
		return 0, err
	}

	return inserted, tx.Commit()
}

// GetProblem returns one problem by assignment and number.
// Returns nil without error when the problem does not exist.
func (s *Store) GetProblem(assignmentID string, number int) (*model.Problem, error) {
	row := s.db.QueryRow(
		`SELECT id, assignment_id, number, title, description, sample_input, sample_output, concepts
		 FROM problems WHERE assignment_id = ? AND number = ?`,
		assignmentID, number,
	)
	p, err := scanProblem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProblems returns all problems for an assignment in number order.
func (s *Store) ListProblems(assignmentID string) ([]model.Problem, error) {
	rows, err := s.db.Query(
		`SELECT id, assignment_id, number, title, description, sample_input, sample_output, concepts
		 FROM problems WHERE assignment_id = ? ORDER BY number`,
		assignmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var problems []model.Problem
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		problems = append(problems, *p)
	}
	return problems, rows.Err()
}

// ProblemCount returns the number of problems in an assignment.
func (s *Store) ProblemCount(assignmentID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM problems WHERE assignment_id = ?`, assignmentID).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProblem(row rowScanner) (*model.Problem, error) {
	var p model.Problem
	var concepts string
	err := row.Scan(&p.ID, &p.AssignmentID, &p.Number, &p.Title, &p.Description,
		&p.SampleInput, &p.SampleOutput, &concepts)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(concepts), &p.Concepts); err != nil {
		return nil, fmt.Errorf("decode concepts: %w", err)
	}
	return &p, nil
}

func (s *Store) CreateSession(sess *model.Session) error {
	now := time.Now()
	sess.CreatedAt = now
	sess.UpdatedAt = now
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, user_id, assignment_id, status, state, problem_number, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.AssignmentID, sess.Status, sess.State,
		sess.ProblemNumber, sess.CreatedAt, sess.UpdatedAt,
	)
	return err
}

// GetSession returns a session by ID.
// Returns nil without error when the session does not exist.
func (s *Store) GetSession(id string) (*model.Session, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, assignment_id, status, state, problem_number, created_at, updated_at
		 FROM sessions WHERE id = ?`, id,
	)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// FindActiveSession returns the most recent active session for a user on an
// assignment, or nil when there is none.
func (s *Store) FindActiveSession(userID, assignmentID string) (*model.Session, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, assignment_id, status, state, problem_number, created_at, updated_at
		 FROM sessions
		 WHERE user_id = ? AND assignment_id = ? AND status = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		userID, assignmentID, model.SessionActive,
	)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// TerminateActiveSessions marks every active session for the user/assignment
// pair as terminated and returns how many rows changed.
func (s *Store) TerminateActiveSessions(userID, assignmentID string) (int64, error) {
	res, err := s.db.Exec(
		`UPDATE sessions SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ? AND assignment_id = ? AND status = ?`,
		model.SessionTerminated, userID, assignmentID, model.SessionActive,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateSession persists the session's status, state and problem number.
func (s *Store) UpdateSession(sess *model.Session) error {
	sess.UpdatedAt = time.Now()
	_, err := s.db.Exec(
		`UPDATE sessions SET status = ?, state = ?, problem_number = ?, updated_at = ? WHERE id = ?`,
		sess.Status, sess.State, sess.ProblemNumber, sess.UpdatedAt, sess.ID,
	)
	return err
}

func scanSession(row rowScanner) (*model.Session, error) {
	var sess model.Session
	err := row.Scan(&sess.ID, &sess.UserID, &sess.AssignmentID, &sess.Status,
		&sess.State, &sess.ProblemNumber, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) AppendTurn(turn *model.Turn) error {
	turn.CreatedAt = time.Now()
	res, err := s.db.Exec(
		`INSERT INTO turns (session_id, role, content, state, mode, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		turn.SessionID, turn.Role, turn.Content, turn.State, turn.Mode, turn.CreatedAt,
	)
	if err != nil {
		return err
	}
	turn.ID, err = res.LastInsertId()
	return err
}

// GetTurns returns a session's transcript in chronological order.
func (s *Store) GetTurns(sessionID string) ([]model.Turn, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, role, content, state, mode, created_at
		 FROM turns WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []model.Turn
	for rows.Next() {
		var t model.Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Role, &t.Content, &t.State, &t.Mode, &t.CreatedAt); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// CommitExchange persists one processed student turn atomically: the student
// message, the tutor reply, the updated session row, and a validation snapshot
// all commit together or not at all.
func (s *Store) CommitExchange(sess *model.Session, student, tutor *model.Turn, snapshot *model.ValidationState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	for _, turn := range []*model.Turn{student, tutor} {
		if turn == nil {
			continue
		}
		turn.CreatedAt = now
		res, err := tx.Exec(
			`INSERT INTO turns (session_id, role, content, state, mode, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			turn.SessionID, turn.Role, turn.Content, turn.State, turn.Mode, turn.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert %s turn: %w", turn.Role, err)
		}
		if turn.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}

	sess.UpdatedAt = now
	_, err = tx.Exec(
		`UPDATE sessions SET status = ?, state = ?, problem_number = ?, updated_at = ? WHERE id = ?`,
		sess.Status, sess.State, sess.ProblemNumber, sess.UpdatedAt, sess.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	if snapshot != nil {
		payload, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO validation_snapshots (session_id, problem_number, payload, created_at)
			 VALUES (?, ?, ?, ?)`,
			snapshot.SessionID, snapshot.ProblemNumber, string(payload), now,
		)
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
	}

	return tx.Commit()
}

// LatestSnapshot returns the newest validation snapshot for a session problem.
// Returns nil without error when no snapshot exists.
func (s *Store) LatestSnapshot(sessionID string, problemNumber int) (*model.ValidationState, error) {
	var payload string
	err := s.db.QueryRow(
		`SELECT payload FROM validation_snapshots
		 WHERE session_id = ? AND problem_number = ?
		 ORDER BY id DESC LIMIT 1`,
		sessionID, problemNumber,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var vs model.ValidationState
	if err := json.Unmarshal([]byte(payload), &vs); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &vs, nil
}

// MarkCompleted records a finished problem. Completing the same problem twice
// keeps the first record.
func (s *Store) MarkCompleted(c *model.Completion) error {
	c.CompletedAt = time.Now()
	_, err := s.db.Exec(
		`INSERT INTO completions (user_id, assignment_id, problem_number, session_id, completed_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, assignment_id, problem_number) DO NOTHING`,
		c.UserID, c.AssignmentID, c.ProblemNumber, c.SessionID, c.CompletedAt,
	)
	return err
}

// ListCompletions returns a user's completed problems for an assignment in
// problem order.
func (s *Store) ListCompletions(userID, assignmentID string) ([]model.Completion, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, assignment_id, problem_number, session_id, completed_at
		 FROM completions WHERE user_id = ? AND assignment_id = ? ORDER BY problem_number`,
		userID, assignmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var completions []model.Completion
	for rows.Next() {
		var c model.Completion
		if err := rows.Scan(&c.ID, &c.UserID, &c.AssignmentID, &c.ProblemNumber, &c.SessionID, &c.CompletedAt); err != nil {
			return nil, err
		}
		completions = append(completions, c)
	}
	return completions, rows.Err()
}

// IsCompleted reports whether the user already finished the given problem.
func (s *Store) IsCompleted(userID, assignmentID string, problemNumber int) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM completions WHERE user_id = ? AND assignment_id = ? AND problem_number = ?`,
		userID, assignmentID, problemNumber,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
