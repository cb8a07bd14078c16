package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/greg-maceachern12/binder-sub000/internal/logger"
	"github.com/greg-maceachern12/binder-sub000/internal/requestdata"
	"github.com/greg-maceachern12/binder-sub000/internal/services"
)

type SyllabusHandler struct {
	log             *logger.Logger
	syllabusService services.SyllabusService
	runService      services.RunService
}

func NewSyllabusHandler(log *logger.Logger, syllabusService services.SyllabusService, runService services.RunService) *SyllabusHandler {
	return &SyllabusHandler{
		log:             log.With("handler", "SyllabusHandler"),
		syllabusService: syllabusService,
		runService:      runService,
	}
}

type createSyllabusRequest struct {
	Topic      string `json:"topic"`
	CourseType string `json:"course_type"`
}

// POST /api/syllabus
func (h *SyllabusHandler) Create(c *gin.Context) {
	var req createSyllabusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	courseType, err := services.ParseCourseType(req.CourseType)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_course_type", err)
		return
	}

	syllabus, err := h.syllabusService.Generate(c.Request.Context(), req.Topic, courseType)
	if err != nil {
		h.log.Error("Syllabus create failed", "topic", req.Topic, "error", err)
		RespondServiceError(c, "syllabus_create_failed", err)
		return
	}
	RespondOK(c, gin.H{"syllabus_id": syllabus.ID, "syllabus": syllabus})
}

// GET /api/syllabus/:id
func (h *SyllabusHandler) Get(c *gin.Context) {
	syllabusID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_syllabus_id", err)
		return
	}

	syllabus, err := h.syllabusService.GetByID(c.Request.Context(), syllabusID)
	if err != nil {
		RespondServiceError(c, "load_syllabus_failed", err)
		return
	}
	RespondOK(c, gin.H{"syllabus": syllabus})
}

// GET /api/syllabi
func (h *SyllabusHandler) List(c *gin.Context) {
	syllabi, err := h.syllabusService.ListRecent(c.Request.Context(), 20)
	if err != nil {
		RespondServiceError(c, "list_syllabi_failed", err)
		return
	}
	RespondOK(c, gin.H{"syllabi": syllabi})
}

type generateAllRequest struct {
	ChapterLimit int `json:"chapter_limit"`
	LessonLimit  int `json:"lesson_limit"`
}

// POST /api/syllabus/:id/generate
func (h *SyllabusHandler) GenerateAll(c *gin.Context) {
	syllabusID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_syllabus_id", err)
		return
	}

	var req generateAllRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
	}

	opts := services.RunOptions{
		ChapterLimit: req.ChapterLimit,
		LessonLimit:  req.LessonLimit,
	}
	if rd := requestdata.GetRequestData(c.Request.Context()); rd != nil {
		opts.UserID = rd.UserID
	}

	result, err := h.runService.RunAll(c.Request.Context(), syllabusID, opts)
	if err != nil {
		h.log.Error("Generation run failed to start", "syllabus_id", syllabusID, "error", err)
		RespondServiceError(c, "run_failed", err)
		return
	}
	RespondOK(c, gin.H{"run": result})
}

// GET /api/syllabus/:id/run
func (h *SyllabusHandler) GetLatestRun(c *gin.Context) {
	syllabusID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_syllabus_id", err)
		return
	}

	run, err := h.runService.GetLatestRun(c.Request.Context(), syllabusID)
	if err != nil {
		RespondServiceError(c, "load_run_failed", err)
		return
	}
	// run can be nil if no runs exist yet
	RespondOK(c, gin.H{"run": run})
}
