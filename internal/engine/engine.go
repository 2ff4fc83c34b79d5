// Package engine orchestrates tutoring sessions: it detects what the student
// is doing, routes the turn to the right validator, and persists the outcome
// as one unit.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/logicfirst/tutor/internal/codeval"
	"github.com/logicfirst/tutor/internal/i18n"
	"github.com/logicfirst/tutor/internal/logicval"
	"github.com/logicfirst/tutor/internal/model"
	"github.com/logicfirst/tutor/internal/scenario"
	"github.com/logicfirst/tutor/internal/state"
	"github.com/logicfirst/tutor/internal/store"
	"github.com/logicfirst/tutor/internal/understanding"
)

var (
	// ErrSessionNotFound is returned for an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed is returned when a turn arrives for a finished session.
	ErrSessionClosed = errors.New("session is not active")
	// ErrNoProblems is returned when an assignment has nothing to tutor.
	ErrNoProblems = errors.New("assignment has no problems")
)

// Engine drives the tutoring loop for every session.
type Engine struct {
	store     *store.Store
	states    state.Store
	logic     *logicval.Validator
	code      *codeval.Validator
	verifier  *understanding.Verifier
	responder *scenario.Responder
	logger    *slog.Logger

	sessionLocks  *keyedMutex // serializes turns per session
	creationLocks *keyedMutex // serializes creation per (user, assignment)

	routes map[dispatchKey]handlerFunc
}

// Config wires an Engine.
type Config struct {
	Store         *store.Store
	States        state.Store
	Logic         *logicval.Validator
	Code          *codeval.Validator
	Understanding *understanding.Verifier
	Responder     *scenario.Responder
	Logger        *slog.Logger
}

func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		store:         cfg.Store,
		states:        cfg.States,
		logic:         cfg.Logic,
		code:          cfg.Code,
		verifier:      cfg.Understanding,
		responder:     cfg.Responder,
		logger:        logger,
		sessionLocks:  newKeyedMutex(),
		creationLocks: newKeyedMutex(),
	}
	e.routes = e.buildRoutes()
	return e
}

// StartResult is the outcome of StartSession.
type StartResult struct {
	Session *model.Session `json:"session"`
	Message string         `json:"message"`
	Resumed bool           `json:"resumed"`
}

// StartSession resumes the user's active session on the assignment or creates
// exactly one new session. Creation is serialized per (user, assignment) so a
// double-submitted request cannot produce two active sessions.
func (e *Engine) StartSession(ctx context.Context, userID, assignmentID string) (*StartResult, error) {
	unlock := e.creationLocks.Lock(userID + "\x00" + assignmentID)
	defer unlock()

	active, err := e.store.FindActiveSession(userID, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("find active session: %w", err)
	}
	if active != nil {
		problem, err := e.store.GetProblem(assignmentID, active.ProblemNumber)
		if err != nil {
			return nil, fmt.Errorf("get problem: %w", err)
		}
		msg := i18n.T(ctx, "resume.welcome_back")
		if problem != nil {
			msg += " " + i18n.Td(ctx, "resume.problem", map[string]any{
				"Number": problem.Number,
				"Title":  problem.Title,
			})
		}
		return &StartResult{Session: active, Message: msg, Resumed: true}, nil
	}

	// Stale actives from older keys are cleared before creating, so at most
	// one active session exists per (user, assignment) afterwards.
	if _, err := e.store.TerminateActiveSessions(userID, assignmentID); err != nil {
		return nil, fmt.Errorf("terminate stale sessions: %w", err)
	}

	problems, err := e.store.ListProblems(assignmentID)
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	if len(problems) == 0 {
		return nil, ErrNoProblems
	}

	next, done := e.nextProblemNumber(userID, assignmentID, problems)
	if done {
		next = problems[len(problems)-1].Number
	}

	sess := &model.Session{
		ID:            uuid.NewString(),
		UserID:        userID,
		AssignmentID:  assignmentID,
		Status:        model.SessionActive,
		State:         model.StateInitialGreeting,
		ProblemNumber: next,
	}
	if err := e.store.CreateSession(sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	greeting := &model.Turn{
		SessionID: sess.ID,
		Role:      model.RoleTutor,
		Content:   i18n.T(ctx, "greeting.initial"),
		State:     sess.State,
		Mode:      model.ModeGreeting,
	}
	if err := e.store.AppendTurn(greeting); err != nil {
		return nil, fmt.Errorf("append greeting: %w", err)
	}

	e.logger.Info("session started", "session", sess.ID, "user", userID, "assignment", assignmentID)
	return &StartResult{Session: sess, Message: greeting.Content}, nil
}

// nextProblemNumber returns the first problem the user has not completed, and
// whether every problem is already done.
func (e *Engine) nextProblemNumber(userID, assignmentID string, problems []model.Problem) (int, bool) {
	completions, err := e.store.ListCompletions(userID, assignmentID)
	if err != nil {
		e.logger.Warn("list completions failed", "error", err)
		return problems[0].Number, false
	}
	done := make(map[int]bool, len(completions))
	for _, c := range completions {
		done[c.ProblemNumber] = true
	}
	for _, p := range problems {
		if !done[p.Number] {
			return p.Number, false
		}
	}
	return 0, true
}

// ProcessTurn handles one student message for a session. Turns for the same
// session are serialized; the reply, state change, and transcript rows commit
// together.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID, text string) (*model.TurnResult, error) {
	unlock := e.sessionLocks.Lock(sessionID)
	defer unlock()

	sess, err := e.store.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if sess.Status != model.SessionActive {
		return nil, ErrSessionClosed
	}

	history, err := e.store.GetTurns(sessionID)
	if err != nil {
		return nil, fmt.Errorf("get turns: %w", err)
	}

	vs, err := e.loadValidationState(ctx, sess)
	if err != nil {
		return nil, err
	}

	problem, err := e.store.GetProblem(sess.AssignmentID, sess.ProblemNumber)
	if err != nil {
		return nil, fmt.Errorf("get problem: %w", err)
	}
	if problem == nil {
		return nil, ErrNoProblems
	}

	cls := Classify(text)
	tc := &turnContext{
		sess:    sess,
		vs:      vs,
		text:    text,
		cls:     cls,
		history: history,
		problem: *problem,
	}

	out := e.dispatch(ctx, tc)

	studentTurn := &model.Turn{
		SessionID: sess.ID,
		Role:      model.RoleStudent,
		Content:   text,
		State:     out.state,
	}
	tutorTurn := &model.Turn{
		SessionID: sess.ID,
		Role:      model.RoleTutor,
		Content:   out.response,
		State:     out.state,
		Mode:      out.mode,
	}

	sess.State = out.state
	if out.assignmentDone {
		sess.Status = model.SessionCompleted
	}
	if err := e.store.CommitExchange(sess, studentTurn, tutorTurn, tc.vs); err != nil {
		return nil, fmt.Errorf("commit turn: %w", err)
	}

	// The keyed record is dropped on completion, not written back.
	if !out.problemDone {
		if err := e.states.Put(ctx, tc.vs); err != nil {
			// The snapshot already committed; the keyed store is a cache on top.
			e.logger.Warn("validation state put failed", "session", sess.ID, "error", err)
		}
	}

	return &model.TurnResult{
		SessionID: sess.ID,
		State:     out.state,
		Mode:      out.mode,
		Tone:      out.tone,
		Response:  out.response,
		Questions: out.questions,
		Completed: out.problemDone || out.assignmentDone,
	}, nil
}

// Transcript returns the session and its conversation so far.
func (e *Engine) Transcript(ctx context.Context, sessionID string) (*model.Session, []model.Turn, error) {
	sess, err := e.store.GetSession(sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, nil, ErrSessionNotFound
	}
	turns, err := e.store.GetTurns(sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("get turns: %w", err)
	}
	return sess, turns, nil
}

// loadValidationState pulls the per-problem record from the keyed store,
// falling back to the latest persisted snapshot, then to a fresh record.
func (e *Engine) loadValidationState(ctx context.Context, sess *model.Session) (*model.ValidationState, error) {
	vs, err := e.states.Get(ctx, sess.ID, sess.ProblemNumber)
	if err == nil {
		return vs, nil
	}
	if !errors.Is(err, state.ErrNotFound) {
		e.logger.Warn("validation state get failed", "session", sess.ID, "error", err)
	}

	snap, err := e.store.LatestSnapshot(sess.ID, sess.ProblemNumber)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if snap != nil {
		snap.Version = 0 // re-entering the keyed store as a fresh record
		return snap, nil
	}
	return model.NewValidationState(sess.ID, sess.ProblemNumber), nil
}
