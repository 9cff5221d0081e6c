package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"esagent/internal/pkg/errcode"
	appErr "esagent/internal/pkg/errors"
	"esagent/internal/pkg/response"
)

// handleError maps pipeline failures to stable codes and messages. The
// caller can tell "your question could not be safely translated" apart
// from "the data store is unavailable", but never sees the structured
// query or internal detail.
func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
	)
	var stageErr *appErr.StageError
	if errors.As(err, &stageErr) {
		logger = logger.With(zap.String("stage", stageErr.Stage))
	}
	logger.Error("request failed", zap.Error(err))

	switch {
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrValidationRejected):
		response.Error(c, errcode.ErrValidationRejected, "the question could not be safely translated into a read-only query")
	case errors.Is(err, appErr.ErrEmbeddingUnavailable):
		response.Error(c, errcode.ErrEmbeddingUnavailable, "the embedding service is unavailable, try again later")
	case errors.Is(err, appErr.ErrGenerationFailed):
		response.Error(c, errcode.ErrGenerationFailed, "a query could not be generated for the question")
	case errors.Is(err, appErr.ErrExecutionFailed):
		response.Error(c, errcode.ErrExecutionFailed, "the data store is unavailable or rejected the query")
	case errors.Is(err, appErr.ErrSynthesisFailed):
		response.Error(c, errcode.ErrSynthesisFailed, "the answer could not be synthesized")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, errcode.ErrTooMany, "too many requests")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
