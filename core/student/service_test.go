package student_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
	dummydb "github.com/trezcool/academia/storage/database/dummy"
)

func newTestService(t *testing.T) *student.Service {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	return student.NewService(dummydb.NewStudentRepository(db))
}

func newTestStudent(t *testing.T, svc *student.Service, first, last, admissionNo string) student.Student {
	t.Helper()
	std, err := svc.Create(context.Background(), student.NewStudent{
		FirstName:   first,
		LastName:    last,
		DOB:         time.Date(2012, 5, 10, 0, 0, 0, 0, time.UTC),
		Gender:      "F",
		AdmissionNo: admissionNo,
	})
	require.NoError(t, err)
	return std
}

func TestService_CheckAdmissionNoUniqueness(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.CheckAdmissionNoUniqueness("ADM-001"))

	std := newTestStudent(t, svc, "Jane", "Doe", "ADM-001")

	err := svc.CheckAdmissionNoUniqueness("ADM-001")
	require.Error(t, err)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "admission_no", vErr.Fields[0].Field)

	// a student does not clash with itself on update
	assert.NoError(t, svc.CheckAdmissionNoUniqueness("ADM-001", std))
}

func TestService_Archive(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	std := newTestStudent(t, svc, "Jane", "Doe", "ADM-001")

	archived, err := svc.Archive(ctx, std.ID)
	require.NoError(t, err)
	assert.Equal(t, student.StatusArchived, archived.Status)
	require.NotNil(t, archived.DeletedAt)

	// archived students disappear from reads
	_, err = svc.GetByID(ctx, std.ID)
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))

	students, total, err := svc.Filter(ctx, student.QueryFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, students)
}

func TestService_Filter(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	jane := newTestStudent(t, svc, "Jane", "Doe", "ADM-001")
	newTestStudent(t, svc, "John", "Smith", "ADM-002")

	tests := []struct {
		name   string
		filter student.QueryFilter
		want   int
	}{
		{"no filter", student.QueryFilter{}, 2},
		{"search first name", student.QueryFilter{Search: "jane"}, 1},
		{"search last name", student.QueryFilter{Search: "SMITH"}, 1},
		{"search admission no", student.QueryFilter{Search: "ADM-00"}, 2},
		{"search no match", student.QueryFilter{Search: "nope"}, 0},
		{"status", student.QueryFilter{Status: student.StatusActive}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			students, total, err := svc.Filter(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, total)
			assert.Len(t, students, tt.want)
		})
	}

	t.Run("pagination", func(t *testing.T) {
		students, total, err := svc.Filter(ctx, student.QueryFilter{Page: core.Page{Number: 1, Size: 1}})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, students, 1)
		assert.Equal(t, jane.ID, students[0].ID) // sorted by last name
	})
}

func TestService_Guardians(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	std := newTestStudent(t, svc, "Jane", "Doe", "ADM-001")

	mom, err := svc.AddGuardian(ctx, std.ID, student.NewGuardian{
		Name: "Mary Doe", Relation: "mother", Phone: "+1111", Email: "mary@test.com", IsPrimary: true,
	})
	require.NoError(t, err)
	assert.True(t, mom.IsPrimary)

	// a new primary demotes the previous one
	dad, err := svc.AddGuardian(ctx, std.ID, student.NewGuardian{
		Name: "Mark Doe", Relation: "father", Phone: "+2222", Email: "mark@test.com", IsPrimary: true,
	})
	require.NoError(t, err)
	assert.True(t, dad.IsPrimary)

	guardians, err := svc.QueryGuardians(ctx, std.ID)
	require.NoError(t, err)
	require.Len(t, guardians, 2)
	primaries := 0
	for _, g := range guardians {
		if g.IsPrimary {
			primaries++
			assert.Equal(t, dad.ID, g.ID)
		}
	}
	assert.Equal(t, 1, primaries)

	t.Run("update keeps single primary", func(t *testing.T) {
		_, err := svc.UpdateGuardian(ctx, std.ID, mom.ID, student.NewGuardian{
			Name: "Mary Doe", Relation: "mother", Phone: "+1111", Email: "mary@test.com", IsPrimary: true,
		})
		require.NoError(t, err)

		guardians, err := svc.QueryGuardians(ctx, std.ID)
		require.NoError(t, err)
		primaries := 0
		for _, g := range guardians {
			if g.IsPrimary {
				primaries++
				assert.Equal(t, mom.ID, g.ID)
			}
		}
		assert.Equal(t, 1, primaries)
	})

	t.Run("unknown student", func(t *testing.T) {
		_, err := svc.AddGuardian(ctx, "nope", student.NewGuardian{
			Name: "X", Relation: "other", Phone: "+0", Email: "x@test.com",
		})
		assert.Equal(t, student.ErrNotFound, errors.Cause(err))
	})
}
