package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"esagent/internal/es"
	"esagent/internal/model"
)

const schemaCacheKey = "cluster"

// Catalog is the index discovery surface of the data store.
type Catalog interface {
	ListIndices(ctx context.Context) ([]es.IndexInfo, error)
	GetSchema(ctx context.Context, index string) (map[string]interface{}, error)
}

// SchemaService discovers index schemas and caches the flattened context
// so every cache miss does not re-walk the cluster's mappings.
type SchemaService struct {
	catalog Catalog
	cache   *expirable.LRU[string, *model.SchemaContext]
}

func NewSchemaService(catalog Catalog, ttl time.Duration) *SchemaService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SchemaService{
		catalog: catalog,
		cache:   expirable.NewLRU[string, *model.SchemaContext](8, nil, ttl),
	}
}

func (s *SchemaService) SchemaContext(ctx context.Context) (*model.SchemaContext, error) {
	if cached, ok := s.cache.Get(schemaCacheKey); ok {
		return cached, nil
	}
	infos, err := s.catalog.ListIndices(ctx)
	if err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx)
	sc := &model.SchemaContext{}
	for _, info := range infos {
		// System indices carry no user data worth querying.
		if strings.HasPrefix(info.Name, ".") {
			continue
		}
		fields, err := s.catalog.GetSchema(ctx, info.Name)
		if err != nil {
			logger.Warn("skip index with unreadable mapping", zap.String("index", info.Name), zap.Error(err))
			continue
		}
		sc.Indices = append(sc.Indices, model.IndexSchema{
			Name:     info.Name,
			DocCount: info.DocCount,
			Fields:   fields,
		})
	}
	if len(sc.Indices) == 0 {
		return nil, fmt.Errorf("no queryable indices discovered")
	}
	s.cache.Add(schemaCacheKey, sc)
	return sc, nil
}

// Invalidate drops the cached context; the next call re-discovers.
func (s *SchemaService) Invalidate() {
	s.cache.Remove(schemaCacheKey)
}
