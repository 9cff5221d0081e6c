package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"esagent/internal/cache"
	"esagent/internal/handler"
	"esagent/internal/middleware"
	"esagent/internal/model"
	"esagent/internal/service"
)

// scriptedLLM drives the pipeline without any external model. Each field
// is the canned outcome of one role.
type scriptedLLM struct {
	needsData bool
	genQuery  *model.StructuredQuery
	genErr    error
	answer    string
	synthErr  error
}

func (s *scriptedLLM) RouteDataQuery(ctx context.Context, question string) (bool, error) {
	return s.needsData, nil
}

func (s *scriptedLLM) Embed(ctx context.Context, text, taskType string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (s *scriptedLLM) GenerateQuery(ctx context.Context, question string, schema *model.SchemaContext) (*model.StructuredQuery, error) {
	if s.genErr != nil {
		return nil, s.genErr
	}
	if s.genQuery != nil {
		return s.genQuery, nil
	}
	return &model.StructuredQuery{
		Index: "logs-app",
		Body: map[string]interface{}{
			"query": map[string]interface{}{"match": map[string]interface{}{"msg": question}},
		},
	}, nil
}

func (s *scriptedLLM) Synthesize(ctx context.Context, question string, result *model.ExecutionResult) (string, error) {
	if s.synthErr != nil {
		return "", s.synthErr
	}
	return s.answer, nil
}

func (s *scriptedLLM) EmbeddingModelName() string { return "embed-1" }
func (s *scriptedLLM) MaxInputChars() int         { return 1000 }

type scriptedExecutor struct {
	err error
}

func (s *scriptedExecutor) Search(ctx context.Context, q *model.StructuredQuery) (*model.ExecutionResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.ExecutionResult{TotalHits: 1, TookMs: 2}, nil
}

type scriptedSchemas struct{}

func (scriptedSchemas) SchemaContext(ctx context.Context) (*model.SchemaContext, error) {
	return &model.SchemaContext{Indices: []model.IndexSchema{{Name: "logs-app"}}}, nil
}

func setupRouter(t *testing.T, llm *scriptedLLM, exec *scriptedExecutor) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pipeline := service.NewPipeline(llm, cache.NewMemoryStore(), exec, scriptedSchemas{}, 0.9)
	deps := handler.RouterDeps{
		Ask: handler.NewAskHandler(pipeline),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)
	return engine
}

var errClusterDown = errors.New("cluster unreachable")
