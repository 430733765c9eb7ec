package quiz

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	AttemptStatusInProgress = "in_progress"
	AttemptStatusCompleted  = "completed"
	AttemptStatusExpired    = "expired"
)

// Attempt is one user's timed pass through a quiz. Rows are immutable once
// the status is terminal; attempts are history, so no soft delete.
type Attempt struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	QuizID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"quiz_id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Status      string         `gorm:"not null;index" json:"status"`
	// ActiveKey is "<quiz_id>:<user_id>" while the attempt is in progress and
	// NULL afterwards. The unique index on it is what guarantees at most one
	// in-progress attempt per (quiz, user) under concurrent starts.
	ActiveKey     *string        `gorm:"column:active_key;uniqueIndex" json:"-"`
	StartedAt     time.Time      `gorm:"column:started_at;not null" json:"started_at"`
	CompletedAt   *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Score         *float64       `gorm:"column:score" json:"score,omitempty"`
	PointsEarned  *float64       `gorm:"column:points_earned" json:"points_earned,omitempty"`
	PointsTotal   *float64       `gorm:"column:points_total" json:"points_total,omitempty"`
	Passed        *bool          `gorm:"column:passed" json:"passed,omitempty"`
	Responses     []*Response    `gorm:"foreignKey:AttemptID;references:ID" json:"responses,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (Attempt) TableName() string { return "quiz_attempt" }

func (a *Attempt) Terminal() bool {
	return a.Status == AttemptStatusCompleted || a.Status == AttemptStatusExpired
}

// Deadline returns the instant past which the attempt no longer accepts
// responses, or nil when the quiz has no time limit. Always derived from the
// attempt's own started_at, never from anything client-supplied.
func (a *Attempt) Deadline(q *Quiz) *time.Time {
	if q == nil || q.TimeLimitMinutes == nil {
		return nil
	}
	d := a.StartedAt.Add(time.Duration(*q.TimeLimitMinutes) * time.Minute)
	return &d
}

// ExpiredAt reports whether the attempt's deadline has passed at now.
func (a *Attempt) ExpiredAt(q *Quiz, now time.Time) bool {
	deadline := a.Deadline(q)
	return deadline != nil && now.After(*deadline)
}

// ActiveKeyFor builds the uniqueness key held by an in-progress attempt.
func ActiveKeyFor(quizID, userID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", quizID, userID)
}

// Response is a user's recorded answer to one question within an attempt.
// (attempt_id, question_id) is unique; resubmission overwrites in place.
type Response struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AttemptID  uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:uq_response_attempt_question" json:"attempt_id"`
	QuestionID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uq_response_attempt_question" json:"question_id"`
	Answer     datatypes.JSON `gorm:"column:answer;not null" json:"answer"`
	// Correct is set once, when the attempt is finalized.
	Correct   *bool     `gorm:"column:correct" json:"correct,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Response) TableName() string { return "quiz_response" }
