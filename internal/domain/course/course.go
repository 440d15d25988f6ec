package course

import (
	"context"
	"fmt"
)

// Catalog lists the courses offered on the enrollment form. Enrollment does
// not reject unknown course names; the content provider simply falls back to
// placeholder lessons for them.
var Catalog = []string{
	"Python Programming",
	"Web Development",
	"Data Science",
	"JavaScript",
	"AI & Machine Learning",
}

// ContentProvider generates the text of a single lesson. It is an external
// collaborator: callers must bound it with a timeout and fall back to
// PlaceholderLesson on failure.
type ContentProvider interface {
	Generate(ctx context.Context, course string, lessonIndex, totalLessons int) (string, error)
}

// PlaceholderLesson is the deterministic substitute used when content
// generation fails. Delivery never blocks on a provider failure.
func PlaceholderLesson(course string, lessonIndex, totalLessons int) string {
	return fmt.Sprintf(
		"📚 %s — Lesson %d of %d\n\nToday's lesson could not be prepared in time. "+
			"Review your notes from the previous lessons; tomorrow's lesson will pick up from here.",
		course, lessonIndex, totalLessons,
	)
}
