package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// Statuses
const (
	StatusActive      = "active"
	StatusTransferred = "transferred"
	StatusGraduated   = "graduated"
	StatusArchived    = "archived"
)

type (
	Address struct {
		Street  string `json:"street,omitempty"`
		City    string `json:"city,omitempty"`
		State   string `json:"state,omitempty"`
		ZipCode string `json:"zip_code,omitempty"`
		Country string `json:"country,omitempty"`
	}

	Medical struct {
		Notes     string   `json:"notes,omitempty"`
		Allergies []string `json:"allergies,omitempty"`
	}

	Student struct {
		ID          string     `json:"id"`
		FirstName   string     `json:"first_name"`
		LastName    string     `json:"last_name"`
		DOB         time.Time  `json:"dob"`
		Gender      string     `json:"gender"`
		AdmissionNo string     `json:"admission_no"`
		Emails      []string   `json:"emails,omitempty"`
		Contacts    []string   `json:"contacts,omitempty"`
		Address     *Address   `json:"address,omitempty"`
		ClassID     string     `json:"class_id,omitempty"`
		Status      string     `json:"status"`
		Medical     *Medical   `json:"medical,omitempty"`
		CreatedAt   time.Time  `json:"created_at"` // UTC
		UpdatedAt   time.Time  `json:"updated_at"` // UTC
		DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	}

	Guardian struct {
		ID        string    `json:"id"`
		StudentID string    `json:"student_id"`
		Name      string    `json:"name"`
		Relation  string    `json:"relation"`
		Phone     string    `json:"phone"`
		Email     string    `json:"email"`
		Address   *Address  `json:"address,omitempty"`
		IsPrimary bool      `json:"is_primary"`
		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}
)

func (s *Student) IsDeleted() bool {
	return s.DeletedAt != nil && !s.DeletedAt.IsZero()
}

// NewStudent contains information needed to register a new Student.
type NewStudent struct {
	FirstName   string    `json:"first_name" validate:"required"`
	LastName    string    `json:"last_name" validate:"required"`
	DOB         time.Time `json:"dob" validate:"required"`
	Gender      string    `json:"gender" validate:"required"`
	AdmissionNo string    `json:"admission_no" validate:"required"`
	Emails      []string  `json:"emails" validate:"omitempty,dive,email"`
	Contacts    []string  `json:"contacts"`
	Address     *Address  `json:"address"`
	ClassID     string    `json:"class_id"`
	Medical     *Medical  `json:"medical"`
}

func (ns *NewStudent) Validate(validate *validator.Validate, svc *Service) error {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.AdmissionNo = core.CleanString(ns.AdmissionNo)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckAdmissionNoUniqueness(ns.AdmissionNo)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Zero-valued fields keep the original values.
type UpdateStudent struct {
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	DOB       time.Time `json:"dob"`
	Gender    string    `json:"gender"`
	Emails    []string  `json:"emails" validate:"omitempty,dive,email"`
	Contacts  []string  `json:"contacts"`
	Address   *Address  `json:"address"`
	ClassID   string    `json:"class_id"`
	Status    string    `json:"status" validate:"omitempty,oneof=active transferred graduated archived"`
	Medical   *Medical  `json:"medical"`
}

func (us *UpdateStudent) Validate(orig Student, validate *validator.Validate) error {
	if name := core.CleanString(us.FirstName); name != "" {
		us.FirstName = name
	} else {
		us.FirstName = orig.FirstName
	}
	if name := core.CleanString(us.LastName); name != "" {
		us.LastName = name
	} else {
		us.LastName = orig.LastName
	}
	if us.DOB.IsZero() {
		us.DOB = orig.DOB
	}
	if us.Gender == "" {
		us.Gender = orig.Gender
	}
	if us.Status == "" {
		us.Status = orig.Status
	}
	return validate.Struct(us)
}

// NewGuardian contains information needed to attach a Guardian to a Student.
type NewGuardian struct {
	Name      string   `json:"name" validate:"required"`
	Relation  string   `json:"relation" validate:"required"`
	Phone     string   `json:"phone" validate:"required"`
	Email     string   `json:"email" validate:"required,email"`
	Address   *Address `json:"address"`
	IsPrimary bool     `json:"is_primary"`
}

func (ng *NewGuardian) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	ng.Email = core.CleanString(ng.Email, true /* lower */)
	return validate.Struct(ng)
}

type QueryFilter struct {
	Search  string `query:"q"`
	ClassID string `query:"class_id"`
	Status  string `query:"status"`
	Page    core.Page
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Page.Clean()
}
