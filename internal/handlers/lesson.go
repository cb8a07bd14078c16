package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/greg-maceachern12/binder-sub000/internal/logger"
	"github.com/greg-maceachern12/binder-sub000/internal/requestdata"
	"github.com/greg-maceachern12/binder-sub000/internal/services"
)

type LessonHandler struct {
	log       *logger.Logger
	lessonGen services.LessonGenService
}

func NewLessonHandler(log *logger.Logger, lessonGen services.LessonGenService) *LessonHandler {
	return &LessonHandler{
		log:       log.With("handler", "LessonHandler"),
		lessonGen: lessonGen,
	}
}

type createLessonRequest struct {
	LessonID     string `json:"lesson_id"`
	LessonTitle  string `json:"lesson_title"`
	ChapterTitle string `json:"chapter_title"`
	CourseTitle  string `json:"course_title"`
}

// POST /api/lesson
func (h *LessonHandler) Create(c *gin.Context) {
	var req createLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	lessonID, err := uuid.Parse(req.LessonID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_lesson_id", err)
		return
	}

	input := services.GenerateLessonInput{
		LessonID:     lessonID,
		LessonTitle:  req.LessonTitle,
		ChapterTitle: req.ChapterTitle,
		CourseTitle:  req.CourseTitle,
	}
	// Anonymous requests carry no user id and bypass the entitlement gate.
	if rd := requestdata.GetRequestData(c.Request.Context()); rd != nil {
		input.UserID = rd.UserID
	}

	lesson, err := h.lessonGen.Generate(c.Request.Context(), input)
	if err != nil {
		h.log.Error("Lesson create failed", "lesson_id", lessonID, "error", err)
		RespondServiceError(c, "lesson_create_failed", err)
		return
	}
	RespondOK(c, gin.H{"lesson": lesson})
}
