package content

import (
	"context"
	"fmt"

	"learnhub/internal/domain/course"
)

// ErrUnknownCourse is returned for courses without built-in material. The
// delivery handler recovers with the placeholder lesson.
var ErrUnknownCourse = fmt.Errorf("no lesson material for this course")

// topics holds the built-in syllabus per catalog course. Lesson indexes wrap
// around the topic list, so any day count up to the configured maximum works.
var topics = map[string][]string{
	"Python Programming": {
		"Variables and data types", "Control flow: if, for and while",
		"Functions and arguments", "Lists, dicts and sets",
		"Working with files", "Modules and packages",
		"Classes and objects", "Error handling with exceptions",
		"List comprehensions", "Virtual environments and pip",
	},
	"Web Development": {
		"How the web works: HTTP basics", "HTML structure and semantics",
		"CSS selectors and the box model", "Responsive layouts with flexbox",
		"Forms and user input", "Introduction to JavaScript in the browser",
		"The DOM and events", "Fetching data from APIs",
		"Deploying a static site", "Web accessibility essentials",
	},
	"Data Science": {
		"What is data science", "Setting up a notebook environment",
		"Loading and inspecting data", "Cleaning messy datasets",
		"Descriptive statistics", "Data visualization basics",
		"Correlation vs causation", "Your first predictive model",
		"Evaluating model quality", "Communicating findings",
	},
	"JavaScript": {
		"Values, types and operators", "Functions and scope",
		"Arrays and objects", "Higher-order functions",
		"Asynchronous code and promises", "Modules and imports",
		"Error handling", "Working with JSON",
		"The event loop", "Testing your code",
	},
	"AI & Machine Learning": {
		"What machine learning actually is", "Supervised vs unsupervised learning",
		"Features and labels", "Training and test sets",
		"Linear models", "Decision trees",
		"Neural networks at a glance", "Overfitting and regularization",
		"Evaluating classifiers", "Ethics and limitations of AI",
	},
}

// StaticProvider serves lessons from the built-in syllabus. It stands in for
// a real content-generation service behind the course.ContentProvider
// interface.
type StaticProvider struct{}

var _ course.ContentProvider = (*StaticProvider)(nil)

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{}
}

func (p *StaticProvider) Generate(_ context.Context, courseName string, lessonIndex, totalLessons int) (string, error) {
	list, ok := topics[courseName]
	if !ok {
		return "", ErrUnknownCourse
	}
	topic := list[(lessonIndex-1)%len(list)]
	return fmt.Sprintf(
		"📚 %s — Lesson %d of %d\n\nToday's topic: %s.\n\n"+
			"Spend 15 minutes on this today. Try one small exercise before tomorrow's lesson.",
		courseName, lessonIndex, totalLessons, topic,
	), nil
}
