package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/thecmdrunner/swiftube-backend/internal/http/middleware"
	"github.com/thecmdrunner/swiftube-backend/internal/http/response"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/apierr"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/dbctx"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
	"github.com/thecmdrunner/swiftube-backend/internal/services"
)

const (
	msgStarted  = "Video creation has begun successfully!"
	msgDemoMode = "THIS IS DEMO MODE."
	msgCreated  = "Video initialized successfully!"
)

type VideoHandler struct {
	log      *logger.Logger
	videos   services.VideoService
	demoMode bool
}

func NewVideoHandler(baseLog *logger.Logger, videos services.VideoService, demoMode bool) *VideoHandler {
	return &VideoHandler{
		log:      baseLog.With("handler", "VideoHandler"),
		videos:   videos,
		demoMode: demoMode,
	}
}

type startVideoRequest struct {
	VideoID string `json:"videoId"`
	UserID  string `json:"userId"`
}

// POST /main/getdata
func (h *VideoHandler) Start(c *gin.Context) {
	var req startVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, response.Envelope{}, apierr.New(http.StatusBadRequest, "invalid_body", err))
		return
	}
	req.VideoID = strings.TrimSpace(req.VideoID)
	req.UserID = strings.TrimSpace(req.UserID)
	env := response.Envelope{UserID: req.UserID, VideoID: req.VideoID}
	middleware.Identify(c, req.UserID, req.VideoID)

	if h.demoMode {
		env.Message = msgDemoMode
		response.RespondOK(c, env)
		return
	}
	if req.VideoID == "" {
		response.RespondError(c, env, apierr.New(http.StatusBadRequest, "missing_video_id", errors.New("videoId is required")))
		return
	}

	job, err := h.videos.Start(dbctx.Background(c.Request.Context()), req.VideoID, req.UserID)
	if err != nil {
		response.RespondError(c, env, err)
		return
	}
	env.UserID = job.UserID
	env.VideoID = job.ID
	env.Message = msgStarted
	response.RespondOK(c, env)
}

type createVideoRequest struct {
	UserID        string `json:"userId"`
	Prompt        string `json:"prompt"`
	ReferenceData string `json:"referenceData"`
}

// POST /main/videos
func (h *VideoHandler) Create(c *gin.Context) {
	var req createVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, response.Envelope{}, apierr.New(http.StatusBadRequest, "invalid_body", err))
		return
	}
	env := response.Envelope{UserID: strings.TrimSpace(req.UserID)}
	middleware.Identify(c, env.UserID, "")

	job, err := h.videos.Create(dbctx.Background(c.Request.Context()), req.UserID, req.Prompt, req.ReferenceData)
	if err != nil {
		response.RespondError(c, env, err)
		return
	}
	env.VideoID = job.ID
	middleware.Identify(c, "", job.ID)
	env.Message = msgCreated
	env.Data = job
	response.RespondOK(c, env)
}

// GET /main/videos/:id
func (h *VideoHandler) Get(c *gin.Context) {
	id := c.Param("id")
	job, err := h.videos.Get(dbctx.Background(c.Request.Context()), id)
	if err != nil {
		response.RespondError(c, response.Envelope{VideoID: id}, err)
		return
	}
	response.RespondOK(c, response.Envelope{UserID: job.UserID, VideoID: job.ID, Message: job.Message, Data: job})
}

type batchGetRequest struct {
	IDs []string `json:"ids"`
}

// POST /main/videos/batch
func (h *VideoHandler) GetMany(c *gin.Context) {
	var req batchGetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, response.Envelope{}, apierr.New(http.StatusBadRequest, "invalid_body", err))
		return
	}
	jobs, err := h.videos.GetMany(dbctx.Background(c.Request.Context()), req.IDs)
	if err != nil {
		response.RespondError(c, response.Envelope{}, err)
		return
	}
	response.RespondOK(c, response.Envelope{Data: gin.H{"videos": jobs}})
}
