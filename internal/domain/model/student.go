package model

import "time"

// Program types.
const (
	ProgramBachelor = "학사"
	ProgramMaster   = "석사"
	ProgramDoctor   = "박사"
)

// Enrollment statuses.
const (
	StatusEnrolled  = "재학"
	StatusLeave     = "휴학"
	StatusGraduated = "졸업"
	StatusExpelled  = "제적"
)

// StudentRoster is one row of the student roster, keyed by StudentID.
type StudentRoster struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	StudentID        string    `gorm:"size:20;not null;uniqueIndex" json:"student_id" validate:"required,max=20"`
	Name             string    `gorm:"size:50;not null" json:"name" validate:"required,max=50"`
	College          string    `gorm:"size:100" json:"college" validate:"max=100"`
	Department       string    `gorm:"size:100;index" json:"department" validate:"max=100"`
	Grade            int       `gorm:"not null;default:0" json:"grade" validate:"gte=0,lte=6"`
	ProgramType      string    `gorm:"size:10;index" json:"program_type" validate:"omitempty,oneof=학사 석사 박사"`
	EnrollmentStatus string    `gorm:"size:10;index" json:"enrollment_status" validate:"omitempty,oneof=재학 휴학 졸업 제적"`
	Gender           string    `gorm:"size:10" json:"gender" validate:"max=10"`
	AdmissionYear    *int      `json:"admission_year" validate:"omitempty,gte=1900,lte=2100"`
	Advisor          string    `gorm:"size:50" json:"advisor" validate:"max=50"`
	Email            string    `gorm:"size:254" json:"email" validate:"omitempty,email"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName pins the table name independent of gorm's pluralizer.
func (StudentRoster) TableName() string { return "student_roster" }
