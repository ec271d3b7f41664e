package student

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound          = errors.New("student not found")
	ErrGuardianNotFound  = errors.New("guardian not found")
	ErrAdmissionNoExists = errors.New("a student with this admission number already exists")
)

type (
	Repository interface {
		CheckAdmissionNoUniqueness(ctx context.Context, admissionNo string, excludedStudents ...Student) error
		CreateStudent(ctx context.Context, std Student) (Student, error)
		// GetStudentByID only returns students that have not been soft-deleted.
		GetStudentByID(ctx context.Context, id string) (Student, error)
		// FilterStudents applies AND operation on available QueryFilter fields;
		// QueryFilter.Search does a case-insensitive match on one of FirstName,
		// LastName or AdmissionNo. Soft-deleted students are excluded.
		FilterStudents(ctx context.Context, filter QueryFilter) ([]Student, int, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)

		QueryGuardians(ctx context.Context, studentID string) ([]Guardian, error)
		GetGuardianByID(ctx context.Context, studentID, guardianID string) (Guardian, error)
		CreateGuardian(ctx context.Context, grd Guardian) (Guardian, error)
		UpdateGuardian(ctx context.Context, grd Guardian) (Guardian, error)
		// ClearPrimaryGuardians unsets IsPrimary on all of the student's
		// guardians except excludedID (may be empty).
		ClearPrimaryGuardians(ctx context.Context, studentID, excludedID string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckAdmissionNoUniqueness(admissionNo string, exclStudents ...Student) error {
	if err := svc.repo.CheckAdmissionNoUniqueness(context.Background(), admissionNo, exclStudents...); err != nil {
		if errors.Cause(err) == ErrAdmissionNoExists {
			return core.NewValidationError(err, core.FieldError{Field: "admission_no", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	std := Student{
		FirstName:   ns.FirstName,
		LastName:    ns.LastName,
		DOB:         ns.DOB,
		Gender:      ns.Gender,
		AdmissionNo: ns.AdmissionNo,
		Emails:      ns.Emails,
		Contacts:    ns.Contacts,
		Address:     ns.Address,
		ClassID:     ns.ClassID,
		Status:      StatusActive,
		Medical:     ns.Medical,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateStudent(ctx, std)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Student, int, error) {
	filter.Clean()
	return svc.repo.FilterStudents(ctx, filter)
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	std, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}

	std.FirstName = us.FirstName
	std.LastName = us.LastName
	std.DOB = us.DOB
	std.Gender = us.Gender
	std.Status = us.Status
	if us.Emails != nil {
		std.Emails = us.Emails
	}
	if us.Contacts != nil {
		std.Contacts = us.Contacts
	}
	if us.Address != nil {
		std.Address = us.Address
	}
	if us.ClassID != "" {
		std.ClassID = us.ClassID
	}
	if us.Medical != nil {
		std.Medical = us.Medical
	}
	std.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, std)
}

// Archive soft-deletes a student: the record stays behind with an
// archived status and a deletion timestamp.
func (svc *Service) Archive(ctx context.Context, id string) (Student, error) {
	std, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	now := time.Now().UTC()
	std.Status = StatusArchived
	std.DeletedAt = &now
	std.UpdatedAt = now
	return svc.repo.UpdateStudent(ctx, std)
}

func (svc *Service) QueryGuardians(ctx context.Context, studentID string) ([]Guardian, error) {
	return svc.repo.QueryGuardians(ctx, studentID)
}

func (svc *Service) AddGuardian(ctx context.Context, studentID string, ng NewGuardian) (Guardian, error) {
	if _, err := svc.repo.GetStudentByID(ctx, studentID); err != nil {
		return Guardian{}, err
	}
	if ng.IsPrimary {
		if err := svc.repo.ClearPrimaryGuardians(ctx, studentID, ""); err != nil {
			return Guardian{}, errors.Wrap(err, "clearing primary guardians")
		}
	}
	now := time.Now().UTC()
	grd := Guardian{
		StudentID: studentID,
		Name:      ng.Name,
		Relation:  ng.Relation,
		Phone:     ng.Phone,
		Email:     ng.Email,
		Address:   ng.Address,
		IsPrimary: ng.IsPrimary,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateGuardian(ctx, grd)
}

func (svc *Service) UpdateGuardian(ctx context.Context, studentID, guardianID string, ng NewGuardian) (Guardian, error) {
	grd, err := svc.repo.GetGuardianByID(ctx, studentID, guardianID)
	if err != nil {
		return Guardian{}, err
	}
	if ng.IsPrimary && !grd.IsPrimary {
		if err := svc.repo.ClearPrimaryGuardians(ctx, studentID, guardianID); err != nil {
			return Guardian{}, errors.Wrap(err, "clearing primary guardians")
		}
	}
	grd.Name = ng.Name
	grd.Relation = ng.Relation
	grd.Phone = ng.Phone
	grd.Email = ng.Email
	if ng.Address != nil {
		grd.Address = ng.Address
	}
	grd.IsPrimary = ng.IsPrimary
	grd.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateGuardian(ctx, grd)
}
