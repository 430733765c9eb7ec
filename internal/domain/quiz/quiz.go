package quiz

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TypeMultipleChoice = "multiple_choice"
	TypeMultipleSelect = "multiple_select"
	TypeTrueFalse      = "true_false"
)

type Quiz struct {
	ID                     uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID               uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	Title                  string         `gorm:"not null" json:"title"`
	Description            string         `gorm:"column:description" json:"description"`
	TimeLimitMinutes       *int           `gorm:"column:time_limit_minutes" json:"time_limit_minutes,omitempty"`
	MaxAttempts            *int           `gorm:"column:max_attempts" json:"max_attempts,omitempty"`
	PassingScore           float64        `gorm:"column:passing_score;not null" json:"passing_score"`
	RandomizeQuestions     bool           `gorm:"column:randomize_questions;not null;default:false" json:"randomize_questions"`
	ShowResultsImmediately bool           `gorm:"column:show_results_immediately;not null;default:false" json:"show_results_immediately"`
	AllowReview            bool           `gorm:"column:allow_review;not null;default:true" json:"allow_review"`
	Questions              []*Question    `gorm:"foreignKey:QuizID;references:ID" json:"questions,omitempty"`
	CreatedAt              time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt              time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Quiz) TableName() string { return "quiz" }

type Question struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	QuizID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"quiz_id"`
	Index     int            `gorm:"column:position;not null" json:"index"`
	Text      string         `gorm:"column:text;not null" json:"text"`
	Type      string         `gorm:"column:type;not null" json:"type"`
	Points    float64        `gorm:"column:points;not null" json:"points"`
	Options   []*Option      `gorm:"foreignKey:QuestionID;references:ID" json:"options,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Question) TableName() string { return "quiz_question" }

// Option returns the question option with the given id, or nil.
func (q *Question) Option(id uuid.UUID) *Option {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt
		}
	}
	return nil
}

// CorrectOptionIDs returns the ids of the question's correct options.
func (q *Question) CorrectOptionIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, opt := range q.Options {
		if opt.IsCorrect {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}

type Option struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QuestionID uuid.UUID `gorm:"type:uuid;not null;index" json:"question_id"`
	Index      int       `gorm:"column:position;not null" json:"index"`
	Text       string    `gorm:"column:text;not null" json:"text"`
	IsCorrect  bool      `gorm:"column:is_correct;not null" json:"is_correct"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (Option) TableName() string { return "quiz_option" }
