package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"esagent/internal/pkg/response"
	"esagent/internal/repo"
)

// CacheHandler exposes read-only inspection of the durable query cache.
// Only wired when the postgres backend is configured.
type CacheHandler struct {
	repo      *repo.QueryCacheRepo
	modelName string
}

func NewCacheHandler(repo *repo.QueryCacheRepo, modelName string) *CacheHandler {
	return &CacheHandler{repo: repo, modelName: modelName}
}

type cacheEntryView struct {
	ID       int64  `json:"id"`
	Question string `json:"question"`
	Index    string `json:"index"`
	HitCount int64  `json:"hit_count"`
	Ctime    int64  `json:"ctime"`
}

func (h *CacheHandler) ListRecent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	entries, err := h.repo.ListRecent(c.Request.Context(), h.modelName, limit)
	if err != nil {
		handleError(c, err)
		return
	}
	views := make([]cacheEntryView, 0, len(entries))
	for _, entry := range entries {
		// The raw query body stays internal.
		views = append(views, cacheEntryView{
			ID:       entry.ID,
			Question: entry.Question,
			Index:    entry.Index,
			HitCount: entry.HitCount,
			Ctime:    entry.Ctime,
		})
	}
	response.Success(c, gin.H{"entries": views})
}
