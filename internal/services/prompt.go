package services

import (
	"fmt"
	"strings"
)

// CourseType selects the generation profile. The set is closed; anything else
// is rejected at the boundary.
type CourseType string

const (
	CourseTypePrimer     CourseType = "primer"
	CourseTypeFullCourse CourseType = "fullCourse"
)

func ParseCourseType(s string) (CourseType, error) {
	switch CourseType(strings.TrimSpace(s)) {
	case CourseTypePrimer:
		return CourseTypePrimer, nil
	case CourseTypeFullCourse, "":
		// empty defaults to the full profile
		return CourseTypeFullCourse, nil
	default:
		return "", fmt.Errorf("unknown course type %q", s)
	}
}

// PromptProfile is the per-course-type generation configuration: system text,
// scope caps, and output budget.
type PromptProfile struct {
	System          string
	MaxChapters     int
	MaxOutputTokens int
}

var promptProfiles = map[CourseType]PromptProfile{
	CourseTypePrimer: {
		System: `You are an expert curriculum designer creating a short primer course.
Produce a focused outline a motivated learner can finish in a few hours.
Keep it to at most 4 chapters with 2-3 lessons each. Favor breadth-defining
fundamentals over exhaustive coverage. Every chapter gets a single fitting
emoji and a realistic estimated duration.`,
		MaxChapters:     4,
		MaxOutputTokens: 4096,
	},
	CourseTypeFullCourse: {
		System: `You are an expert curriculum designer creating a complete course.
Produce a thorough outline that takes a learner from the stated prerequisites
to working proficiency. Use 6-10 chapters with 3-5 lessons each, ordered so
each chapter builds on the previous ones. Every chapter gets a single fitting
emoji and a realistic estimated duration.`,
		MaxChapters:     10,
		MaxOutputTokens: 8192,
	},
}

// ProfileFor returns the prompt profile for a course type. The zero profile is
// never returned for a parsed CourseType.
func ProfileFor(ct CourseType) PromptProfile {
	return promptProfiles[ct]
}

const lessonSystemPrompt = `You are an expert instructor writing one detailed lesson
for an online course. Write substantive teaching content, not an outline: each
section explains its topic fully, lists the key points a learner must retain,
and gives concrete examples. Exercises must be doable with only this lesson's
content. Keep the register practical and direct.`

func syllabusUserPrompt(topic string) string {
	return fmt.Sprintf("Create a course outline for the topic: %s", topic)
}

func lessonUserPrompt(courseTitle, chapterTitle, lessonTitle string) string {
	return fmt.Sprintf(
		"Course: %s\nChapter: %s\nLesson: %s\n\nWrite the full lesson content.",
		courseTitle, chapterTitle, lessonTitle,
	)
}
