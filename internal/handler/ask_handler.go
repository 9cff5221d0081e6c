package handler

import (
	"bytes"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"

	"esagent/internal/pkg/errcode"
	"esagent/internal/pkg/response"
	"esagent/internal/service"
)

type AskHandler struct {
	pipeline *service.Pipeline
	md       goldmark.Markdown
}

func NewAskHandler(pipeline *service.Pipeline) *AskHandler {
	return &AskHandler{
		pipeline: pipeline,
		md:       goldmark.New(),
	}
}

type askRequest struct {
	Question string `json:"question"`
	Format   string `json:"format"`
}

type askResponse struct {
	Answer     string `json:"answer"`
	AnswerHTML string `json:"answer_html,omitempty"`
	Cached     bool   `json:"cached"`
	Index      string `json:"index,omitempty"`
	TookMs     int64  `json:"took_ms"`
}

func (h *AskHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		response.Error(c, errcode.ErrInvalid, "question is required")
		return
	}
	answer, err := h.pipeline.Resolve(c.Request.Context(), req.Question)
	if err != nil {
		handleError(c, err)
		return
	}
	resp := askResponse{
		Answer: answer.Text,
		Cached: answer.Cached,
		Index:  answer.Index,
		TookMs: answer.Elapsed.Milliseconds(),
	}
	if req.Format == "html" {
		var buf bytes.Buffer
		if err := h.md.Convert([]byte(answer.Text), &buf); err == nil {
			resp.AnswerHTML = buf.String()
		}
	}
	response.Success(c, resp)
}
