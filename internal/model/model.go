package model

import (
	"time"
)

// Role represents a conversation turn role.
type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleSystem  Role = "system"
)

// StudentState represents where a student is in the tutoring flow.
type StudentState string

const (
	StateInitialGreeting     StudentState = "initial_greeting"
	StateReadyToStart        StudentState = "ready_to_start"
	StateProblemPresented    StudentState = "problem_presented"
	StateAwaitingApproach    StudentState = "awaiting_approach"
	StateLogicValidation     StudentState = "logic_validation"
	StateLogicApproved       StudentState = "logic_approved"
	StateReadyForCoding      StudentState = "ready_for_coding"
	StateGuidedCodeDiscovery StudentState = "guided_code_discovery"
	StateCodeSubmitted       StudentState = "code_submitted"
	StateCodeAlignmentCheck  StudentState = "code_alignment_check"
	StateCodeReview          StudentState = "code_review"
	StateCodeUnderstanding   StudentState = "code_understanding"
	StateStuckNeedsHelp      StudentState = "stuck_needs_help"
	StateProblemCompleted    StudentState = "problem_completed"
)

// TutoringMode selects how the tutor responds on a given turn.
type TutoringMode string

const (
	ModeGreeting            TutoringMode = "greeting"
	ModeProblemPresentation TutoringMode = "problem_presentation"
	ModeLogicValidation     TutoringMode = "logic_validation"
	ModeGuidedDiscovery     TutoringMode = "guided_discovery"
	ModeCodeValidation      TutoringMode = "code_validation"
	ModeUnderstandingCheck  TutoringMode = "understanding_check"
	ModeEncouragement       TutoringMode = "encouragement"
	ModeGamingIntervention  TutoringMode = "gaming_intervention"
)

// ValidationLevel represents escalating depth of logic validation.
type ValidationLevel string

const (
	LevelInitialRequest     ValidationLevel = "initial_request"
	LevelBasicExplanation   ValidationLevel = "basic_explanation"
	LevelCrossQuestioning   ValidationLevel = "cross_questioning"
	LevelDetailedValidation ValidationLevel = "detailed_validation"
	LevelEdgeCaseTesting    ValidationLevel = "edge_case_testing"
	LevelLogicApproved      ValidationLevel = "logic_approved"
	LevelGamingDetected     ValidationLevel = "gaming_detected"
)

// Ordinal maps a validation level onto the escalation ladder, or -1 for
// terminal levels that sit outside it.
func (v ValidationLevel) Ordinal() int {
	switch v {
	case LevelInitialRequest:
		return 0
	case LevelBasicExplanation:
		return 1
	case LevelCrossQuestioning:
		return 2
	case LevelDetailedValidation:
		return 3
	case LevelEdgeCaseTesting:
		return 4
	default:
		return -1
	}
}

// Strictness represents validator strictness, escalating one step per
// unconvincing attempt.
type Strictness int

const (
	StrictnessLenient    Strictness = 1
	StrictnessModerate   Strictness = 2
	StrictnessStrict     Strictness = 3
	StrictnessVeryStrict Strictness = 4
	StrictnessGamingMode Strictness = 5
)

func (s Strictness) String() string {
	switch s {
	case StrictnessLenient:
		return "lenient"
	case StrictnessModerate:
		return "moderate"
	case StrictnessStrict:
		return "strict"
	case StrictnessVeryStrict:
		return "very_strict"
	case StrictnessGamingMode:
		return "gaming_mode"
	default:
		return "unknown"
	}
}

// Next returns the strictness escalated by exactly one step.
func (s Strictness) Next() Strictness {
	if s >= StrictnessGamingMode {
		return StrictnessGamingMode
	}
	return s + 1
}

// GamingType classifies a detected gaming behavior.
type GamingType string

const (
	GamingNone               GamingType = ""
	GamingCopyPaste          GamingType = "copy_paste"
	GamingVagueRepetition    GamingType = "vague_repetition"
	GamingBypassAttempt      GamingType = "bypass_attempt"
	GamingInsufficientEffort GamingType = "insufficient_effort"
)

// GamingDetection is the outcome of a gaming check on one student turn.
type GamingDetection struct {
	Flagged    bool       `json:"flagged"`
	Type       GamingType `json:"type,omitempty"`
	Confidence float64    `json:"confidence"`
	Evidence   []string   `json:"evidence,omitempty"`
}

// Recommendation is the content analyzer's verdict on a logic explanation.
type Recommendation string

const (
	RecommendApprove           Recommendation = "APPROVE"
	RecommendCrossQuestion     Recommendation = "CROSS_QUESTION"
	RecommendRequireMoreDetail Recommendation = "REQUIRE_MORE_DETAIL"
)

// ContentAnalysis is the scored breakdown of a logic explanation against the
// elements required at the current strictness.
type ContentAnalysis struct {
	Confidence      float64        `json:"confidence"`
	CoveredElements []string       `json:"covered_elements"`
	MissingElements []string       `json:"missing_elements"`
	Recommendation  Recommendation `json:"recommendation"`
	Source          string         `json:"source"` // "llm" or "heuristic"
}

// LogicValidationResult is the validator's full per-turn outcome.
type LogicValidationResult struct {
	Level          ValidationLevel `json:"level"`
	Strictness     Strictness      `json:"strictness"`
	Analysis       ContentAnalysis `json:"analysis"`
	Gaming         GamingDetection `json:"gaming"`
	Approved       bool            `json:"approved"`
	CrossQuestions []string        `json:"cross_questions,omitempty"`
	Response       string          `json:"response"`
}

// CodePhase represents the code-side validation state machine.
type CodePhase string

const (
	PhaseReadyForCoding         CodePhase = "ready_for_coding"
	PhaseGuidedDiscovery        CodePhase = "guided_discovery"
	PhaseCodeSubmitted          CodePhase = "code_submitted"
	PhaseLogicAlignmentCheck    CodePhase = "logic_alignment_check"
	PhaseCodeUnderstanding      CodePhase = "code_understanding"
	PhaseImplementationApproved CodePhase = "implementation_approved"
	PhaseCodeGamingDetected     CodePhase = "code_gaming_detected"
)

// SyntaxIssue classifies a syntax failure in submitted code.
type SyntaxIssue string

const (
	SyntaxNone                 SyntaxIssue = ""
	SyntaxMissingColon         SyntaxIssue = "missing_colon"
	SyntaxIndentationError     SyntaxIssue = "indentation_error"
	SyntaxUnmatchedParenthesis SyntaxIssue = "unmatched_parenthesis"
	SyntaxUnmatchedBracket     SyntaxIssue = "unmatched_bracket"
	SyntaxGeneric              SyntaxIssue = "syntax_error"
)

// Complexity buckets submitted code by construct sophistication.
type Complexity string

const (
	ComplexityBasic        Complexity = "basic"
	ComplexityIntermediate Complexity = "intermediate"
	ComplexityAdvanced     Complexity = "advanced"
)

// CodeValidationResult is the code validator's per-submission outcome.
type CodeValidationResult struct {
	Phase           CodePhase       `json:"phase"`
	Parseable       bool            `json:"parseable"`
	SyntaxIssue     SyntaxIssue     `json:"syntax_issue,omitempty"`
	AlignmentScore  float64         `json:"alignment_score"`
	MatchedElements []string        `json:"matched_elements,omitempty"`
	MissingElements []string        `json:"missing_elements,omitempty"`
	ExtraElements   []string        `json:"extra_elements,omitempty"`
	Gaming          GamingDetection `json:"gaming"`
	Questions       []string        `json:"questions,omitempty"`
	Response        string          `json:"response"`
}

// UnderstandingLevel represents depth of demonstrated code understanding.
type UnderstandingLevel string

const (
	UnderstandingSurface    UnderstandingLevel = "surface"
	UnderstandingConceptual UnderstandingLevel = "conceptual"
	UnderstandingDeep       UnderstandingLevel = "deep"
	UnderstandingMastery    UnderstandingLevel = "mastery"
)

// Threshold returns the confidence a student must reach to verify at this level.
func (u UnderstandingLevel) Threshold() float64 {
	switch u {
	case UnderstandingConceptual:
		return 0.7
	case UnderstandingDeep:
		return 0.8
	case UnderstandingMastery:
		return 0.9
	default:
		return 0.6
	}
}

// UnderstandingResult is the verifier's outcome for one explanation.
type UnderstandingResult struct {
	Verified   bool               `json:"verified"`
	Level      UnderstandingLevel `json:"level"`
	Confidence float64            `json:"confidence"`
	Strengths  []string           `json:"strengths,omitempty"`
	Gaps       []string           `json:"gaps,omitempty"`
	Questions  []string           `json:"questions,omitempty"`
	Response   string             `json:"response"`
}

// Tone selects the register of a tutor response.
type Tone string

const (
	ToneEncouraging Tone = "encouraging"
	ToneFirmButKind Tone = "firm_but_kind"
	ToneStrict      Tone = "strict"
	ToneEmpathetic  Tone = "empathetic"
	ToneCelebratory Tone = "celebratory"
)

// Problem is one assignment problem presented to the student.
type Problem struct {
	ID           int64    `json:"id"`
	AssignmentID string   `json:"assignment_id"`
	Number       int      `json:"number"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	SampleInput  string   `json:"sample_input"`
	SampleOutput string   `json:"sample_output"`
	Concepts     []string `json:"concepts,omitempty"`
}

// ProblemImport is used for loading problems from JSON.
type ProblemImport struct {
	AssignmentID string   `json:"assignment_id"`
	Number       int      `json:"number"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	SampleInput  string   `json:"sample_input"`
	SampleOutput string   `json:"sample_output"`
	Concepts     []string `json:"concepts,omitempty"`
}

// SessionStatus represents the lifecycle of a tutoring session.
type SessionStatus string

const (
	SessionActive     SessionStatus = "active"
	SessionCompleted  SessionStatus = "completed"
	SessionTerminated SessionStatus = "terminated"
)

// Session is one student's tutoring session on an assignment.
type Session struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	AssignmentID  string        `json:"assignment_id"`
	Status        SessionStatus `json:"status"`
	State         StudentState  `json:"state"`
	ProblemNumber int           `json:"problem_number"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Turn is one message in a session's conversation, append-only.
type Turn struct {
	ID        int64        `json:"id"`
	SessionID string       `json:"session_id"`
	Role      Role         `json:"role"`
	Content   string       `json:"content"`
	State     StudentState `json:"state"`
	Mode      TutoringMode `json:"mode,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// ValidationState is the mutable per-problem validation record, keyed by
// (session, problem number).
type ValidationState struct {
	SessionID        string             `json:"session_id"`
	ProblemNumber    int                `json:"problem_number"`
	Level            ValidationLevel    `json:"level"`
	Strictness       Strictness         `json:"strictness"`
	Attempts         int                `json:"attempts"`
	GamingStrikes    int                `json:"gaming_strikes"`
	GateOffenses     int                `json:"gate_offenses"`
	ApprovedLogic    string             `json:"approved_logic,omitempty"`
	ApprovedElements []string           `json:"approved_elements,omitempty"`
	CodePhase        CodePhase          `json:"code_phase,omitempty"`
	AlignmentAsked   int                `json:"alignment_asked"`
	Understanding    UnderstandingLevel `json:"understanding,omitempty"`
	Version          int64              `json:"version"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// NewValidationState returns the initial record for a problem.
func NewValidationState(sessionID string, problemNumber int) *ValidationState {
	return &ValidationState{
		SessionID:     sessionID,
		ProblemNumber: problemNumber,
		Level:         LevelInitialRequest,
		Strictness:    StrictnessLenient,
		Understanding: UnderstandingSurface,
		UpdatedAt:     time.Now(),
	}
}

// Completion records a finished problem for progress tracking.
type Completion struct {
	ID            int64     `json:"id"`
	UserID        string    `json:"user_id"`
	AssignmentID  string    `json:"assignment_id"`
	ProblemNumber int       `json:"problem_number"`
	SessionID     string    `json:"session_id"`
	CompletedAt   time.Time `json:"completed_at"`
}

// TurnResult is what the engine returns for one processed student turn.
type TurnResult struct {
	SessionID string       `json:"session_id"`
	State     StudentState `json:"state"`
	Mode      TutoringMode `json:"mode"`
	Tone      Tone         `json:"tone"`
	Response  string       `json:"response"`
	Questions []string     `json:"questions,omitempty"`
	Completed bool         `json:"completed"`
}
