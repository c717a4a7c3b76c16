package model

import "time"

// Upload kinds.
const (
	KindPerformance = "performance"
	KindStudents    = "students"
)

// Upload outcomes.
const (
	UploadSuccess = "success"
	UploadFailed  = "failed"
)

// UploadLog records the outcome of one uploaded file.
type UploadLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UploadID       string    `gorm:"size:36;index" json:"upload_id"`
	BatchID        string    `gorm:"size:36;index" json:"batch_id,omitempty"`
	Kind           string    `gorm:"size:20;not null;default:performance" json:"kind"`
	ReferenceDate  string    `gorm:"size:7" json:"reference_date"`
	Filename       string    `gorm:"size:255;not null" json:"filename"`
	RowCount       int       `gorm:"not null;default:0" json:"row_count"`
	Status         string    `gorm:"size:10;not null" json:"status"`
	ErrorMessage   string    `gorm:"type:text" json:"error_message"`
	UploadedByName string    `gorm:"size:100" json:"uploaded_by_name"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

// TableName pins the table name independent of gorm's pluralizer.
func (UploadLog) TableName() string { return "upload_log" }
