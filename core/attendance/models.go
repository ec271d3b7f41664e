package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Statuses
const (
	StatusPresent = "P"
	StatusAbsent  = "A"
	StatusLate    = "L"
)

// Methods
const (
	MethodManual    = "manual"
	MethodQR        = "qr"
	MethodBiometric = "biometric"
)

type Attendance struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	ClassID    string    `json:"class_id"`
	Date       time.Time `json:"date"`
	Status     string    `json:"status"`
	Method     string    `json:"method"`
	RecordedBy string    `json:"recorded_by"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

type (
	MarkEntry struct {
		StudentID string `json:"student_id" validate:"required"`
		Status    string `json:"status" validate:"required,oneof=P A L"`
		Note      string `json:"note"`
	}

	// MarkAttendance is a batch attendance sheet for one class and date.
	MarkAttendance struct {
		ClassID string      `json:"class_id" validate:"required"`
		Date    time.Time   `json:"date" validate:"required"`
		Entries []MarkEntry `json:"entries" validate:"required,dive"`
		Method  string      `json:"method" validate:"omitempty,oneof=manual qr biometric"`
	}
)

func (ma *MarkAttendance) Validate(validate *validator.Validate) error {
	if ma.Method == "" {
		ma.Method = MethodManual
	}
	return validate.Struct(ma)
}

type QueryFilter struct {
	ClassID   string    `query:"class_id"`
	StudentID string    `query:"student_id"`
	DateFrom  time.Time `query:"from"`
	DateTo    time.Time `query:"to"`
}
