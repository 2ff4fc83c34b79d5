package store

import (
	"fmt"
	"time"

	"github.com/logicfirst/tutor/internal/model"
)

// ExportAssignment builds the export-ready view of every session for one
// assignment, transcripts included.
func (s *Store) ExportAssignment(assignmentID string) (*model.AssignmentExport, error) {
	count, err := s.ProblemCount(assignmentID)
	if err != nil {
		return nil, fmt.Errorf("count problems: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT id, user_id, assignment_id, status, state, problem_number, created_at, updated_at
		 FROM sessions WHERE assignment_id = ? ORDER BY created_at, id`,
		assignmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	export := &model.AssignmentExport{
		AssignmentID: assignmentID,
		ExportedAt:   time.Now(),
		NumProblems:  count,
	}

	for _, sess := range sessions {
		turns, err := s.GetTurns(sess.ID)
		if err != nil {
			return nil, fmt.Errorf("get turns for %s: %w", sess.ID, err)
		}

		var conv []model.ConversationMsg
		for _, t := range turns {
			conv = append(conv, model.ConversationMsg{
				Role:    string(t.Role),
				Content: t.Content,
				State:   t.State,
				Mode:    t.Mode,
				At:      t.CreatedAt,
			})
		}

		completions, err := s.ListCompletions(sess.UserID, assignmentID)
		if err != nil {
			return nil, fmt.Errorf("list completions for %s: %w", sess.UserID, err)
		}
		var completed []int
		for _, c := range completions {
			completed = append(completed, c.ProblemNumber)
		}

		export.Sessions = append(export.Sessions, model.SessionExport{
			SessionID:     sess.ID,
			UserID:        sess.UserID,
			Status:        sess.Status,
			ProblemNumber: sess.ProblemNumber,
			StartedAt:     sess.CreatedAt,
			UpdatedAt:     sess.UpdatedAt,
			Conversation:  conv,
			Completed:     completed,
		})
	}

	return export, nil
}
