package types

// Pure JSON contracts for generated documents. Not DB models.

type LessonSection struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	KeyPoints []string `json:"key_points"`
	Examples  []string `json:"examples,omitempty"`
}

type LessonExercise struct {
	Prompt   string `json:"prompt"`
	Solution string `json:"solution"`
}

type LessonAssessment struct {
	ReviewQuestions  []string `json:"review_questions"`
	PracticeProblems []string `json:"practice_problems"`
}

type LessonResources struct {
	Required      []string `json:"required"`
	Supplementary []string `json:"supplementary,omitempty"`
}

type LessonContent struct {
	Summary    string           `json:"summary"`
	Sections   []LessonSection  `json:"sections"`
	Exercises  []LessonExercise `json:"exercises"`
	Assessment LessonAssessment `json:"assessment"`
	Resources  LessonResources  `json:"resources"`
	NextSteps  []string         `json:"next_steps"`
}

// SyllabusOutline is the model-produced course outline before persistence.

type OutlineLesson struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type OutlineChapter struct {
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	EstimatedDuration string          `json:"estimated_duration"`
	Emoji             string          `json:"emoji"`
	Lessons           []OutlineLesson `json:"lessons"`
}

type SyllabusOutline struct {
	Title             string           `json:"title"`
	Description       string           `json:"description"`
	Level             string           `json:"level"`
	EstimatedDuration string           `json:"estimated_duration"`
	Prerequisites     []string         `json:"prerequisites"`
	Chapters          []OutlineChapter `json:"chapters"`
}
