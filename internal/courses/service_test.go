package courses_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akademia-app/akademia/internal/courses"
	"github.com/akademia-app/akademia/internal/rbac"
	"github.com/akademia-app/akademia/internal/shared"
)

type mockRepo struct {
	courses map[int64]courses.Course
	batches map[int64]courses.Batch
	nextID  int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{courses: map[int64]courses.Course{}, batches: map[int64]courses.Batch{}, nextID: 1}
}

func (m *mockRepo) seed(c courses.Course) courses.Course {
	c.ID = m.nextID
	m.nextID++
	m.courses[c.ID] = c
	return c
}

func (m *mockRepo) ListCourses(ctx context.Context) ([]courses.Course, error) {
	out := make([]courses.Course, 0, len(m.courses))
	for _, c := range m.courses {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockRepo) GetCourse(ctx context.Context, id int64) (courses.Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return courses.Course{}, shared.ErrNotFound
	}
	for _, b := range m.batches {
		if b.CourseID == id {
			c.Batches = append(c.Batches, b)
		}
	}
	return c, nil
}

func (m *mockRepo) CreateCourse(ctx context.Context, input courses.CourseInput) (courses.Course, error) {
	for _, c := range m.courses {
		if c.Code == input.Code {
			return courses.Course{}, shared.ErrDuplicate
		}
	}
	c := courses.Course{ID: m.nextID, Code: input.Code, Name: input.Name, Description: input.Description, IsActive: true}
	m.nextID++
	m.courses[c.ID] = c
	return c, nil
}

func (m *mockRepo) UpdateCourse(ctx context.Context, id int64, input courses.CourseInput) (courses.Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return courses.Course{}, shared.ErrNotFound
	}
	for otherID, other := range m.courses {
		if otherID != id && other.Code == input.Code {
			return courses.Course{}, shared.ErrDuplicate
		}
	}
	c.Code = input.Code
	c.Name = input.Name
	c.Description = input.Description
	m.courses[id] = c
	return c, nil
}

func (m *mockRepo) SetCourseActive(ctx context.Context, id int64, active bool) error {
	c, ok := m.courses[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.IsActive = active
	m.courses[id] = c
	return nil
}

func (m *mockRepo) CreateBatch(ctx context.Context, input courses.BatchInput) (courses.Batch, error) {
	for _, b := range m.batches {
		if b.CourseID == input.CourseID && b.Code == input.Code {
			return courses.Batch{}, shared.ErrDuplicate
		}
	}
	b := courses.Batch{ID: m.nextID, CourseID: input.CourseID, Code: input.Code, Name: input.Name,
		StartsOn: input.StartsOn, EndsOn: input.EndsOn, Capacity: input.Capacity}
	m.nextID++
	m.batches[b.ID] = b
	return b, nil
}

type captureAudit struct {
	entries []shared.AuditLog
}

func (c *captureAudit) Record(ctx context.Context, log shared.AuditLog) error {
	c.entries = append(c.entries, log)
	return nil
}

func staffActor() *rbac.Identity {
	return &rbac.Identity{ID: 3, Email: "staf@akademia.test", Role: &rbac.RoleGrant{
		Name: "STAFF",
		Permissions: []rbac.Permission{
			{Action: rbac.ActionManage, Subject: rbac.SubjectCourse},
			{Action: rbac.ActionManage, Subject: rbac.SubjectBatch},
		},
	}}
}

func TestCreateCourse(t *testing.T) {
	repo := newMockRepo()
	audit := &captureAudit{}
	service := courses.NewService(repo, audit, nil)

	created, err := service.CreateCourse(context.Background(), courses.CourseInput{
		Code: " tahfidz-1 ", Name: "Tahfidz Dasar",
	}, staffActor())
	require.NoError(t, err)

	assert.Equal(t, "TAHFIDZ-1", created.Code, "code must be trimmed and uppercased")
	assert.True(t, created.IsActive)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "course.create", audit.entries[0].Action)
	assert.Equal(t, int64(3), audit.entries[0].ActorID)
}

func TestCreateCourseValidation(t *testing.T) {
	service := courses.NewService(newMockRepo(), nil, nil)

	cases := []struct {
		name  string
		input courses.CourseInput
		field string
	}{
		{"empty code", courses.CourseInput{Name: "Tanpa Kode"}, "code"},
		{"blank code", courses.CourseInput{Code: "   ", Name: "Tanpa Kode"}, "code"},
		{"empty name", courses.CourseInput{Code: "MTK-7"}, "name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.CreateCourse(context.Background(), tc.input, nil)
			var vErr *courses.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestCreateCourseDuplicateCode(t *testing.T) {
	repo := newMockRepo()
	repo.seed(courses.Course{Code: "MTK-7", Name: "Matematika Kelas 7", IsActive: true})
	service := courses.NewService(repo, nil, nil)

	_, err := service.CreateCourse(context.Background(), courses.CourseInput{Code: "mtk-7", Name: "Duplikat"}, nil)

	var vErr *courses.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "code", vErr.Field)
	assert.Contains(t, vErr.Message, "already in use")
}

func TestUpdateCourseUnknown(t *testing.T) {
	service := courses.NewService(newMockRepo(), nil, nil)

	_, err := service.UpdateCourse(context.Background(), 404, courses.CourseInput{Code: "X", Name: "Y"}, nil)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestArchiveCourse(t *testing.T) {
	repo := newMockRepo()
	seeded := repo.seed(courses.Course{Code: "MTK-7", Name: "Matematika Kelas 7", IsActive: true})
	audit := &captureAudit{}
	service := courses.NewService(repo, audit, nil)

	require.NoError(t, service.ArchiveCourse(context.Background(), seeded.ID, staffActor()))

	assert.False(t, repo.courses[seeded.ID].IsActive)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "course.archive", audit.entries[0].Action)
}

func TestScheduleBatch(t *testing.T) {
	repo := newMockRepo()
	seeded := repo.seed(courses.Course{Code: "MTK-7", Name: "Matematika Kelas 7", IsActive: true})
	service := courses.NewService(repo, nil, nil)

	created, err := service.ScheduleBatch(context.Background(), courses.BatchInput{
		CourseID: seeded.ID,
		Code:     "2026-ganjil",
		Name:     "Semester Ganjil 2026",
		StartsOn: time.Date(2026, 7, 13, 0, 0, 0, 0, time.UTC),
		Capacity: 30,
	}, staffActor())
	require.NoError(t, err)

	assert.Equal(t, "2026-GANJIL", created.Code)
	assert.Equal(t, seeded.ID, created.CourseID)
}

func TestScheduleBatchOnArchivedCourse(t *testing.T) {
	repo := newMockRepo()
	seeded := repo.seed(courses.Course{Code: "MTK-7", Name: "Matematika Kelas 7", IsActive: false})
	service := courses.NewService(repo, nil, nil)

	_, err := service.ScheduleBatch(context.Background(), courses.BatchInput{
		CourseID: seeded.ID,
		Code:     "2026-GANJIL",
		StartsOn: time.Date(2026, 7, 13, 0, 0, 0, 0, time.UTC),
	}, nil)

	var vErr *courses.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "course", vErr.Field)
	assert.Empty(t, repo.batches)
}

func TestScheduleBatchDateOrder(t *testing.T) {
	repo := newMockRepo()
	seeded := repo.seed(courses.Course{Code: "MTK-7", Name: "Matematika Kelas 7", IsActive: true})
	service := courses.NewService(repo, nil, nil)

	endsOn := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := service.ScheduleBatch(context.Background(), courses.BatchInput{
		CourseID: seeded.ID,
		Code:     "2026-GANJIL",
		StartsOn: time.Date(2026, 7, 13, 0, 0, 0, 0, time.UTC),
		EndsOn:   &endsOn,
	}, nil)

	var vErr *courses.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "ends_on", vErr.Field)
}
