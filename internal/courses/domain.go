package courses

import "time"

// Course represents a course offered by the school.
type Course struct {
	ID          int64
	Code        string
	Name        string
	Description string
	IsActive    bool
	Batches     []Batch
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Batch represents a scheduled intake of a course.
type Batch struct {
	ID        int64
	CourseID  int64
	Code      string
	Name      string
	StartsOn  time.Time
	EndsOn    *time.Time
	Capacity  int
	CreatedAt time.Time
}

// CourseInput carries course form values.
type CourseInput struct {
	Code        string
	Name        string
	Description string
}

// BatchInput carries batch form values.
type BatchInput struct {
	CourseID int64
	Code     string
	Name     string
	StartsOn time.Time
	EndsOn   *time.Time
	Capacity int
}
