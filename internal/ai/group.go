package ai

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type GeneratorEntry struct {
	Name      string
	Generator IGenerator
}

// fallbackChain tries each generator in order until one answers. It does
// not cross over for embeddings: cached vectors are bound to a single
// embedding model, so only generation may fail over.
type fallbackChain struct {
	entries []GeneratorEntry
}

func NewGroupGenerator(entries []GeneratorEntry) IGenerator {
	if len(entries) == 0 {
		return nil
	}
	return &fallbackChain{entries: entries}
}

func (f *fallbackChain) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for _, entry := range f.entries {
		if entry.Generator == nil {
			continue
		}
		reply, err := entry.Generator.Generate(ctx, prompt)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("generator failed, trying next",
			zap.String("name", entry.Name), zap.Error(err))
	}
	if lastErr == nil {
		return "", fmt.Errorf("generator not configured")
	}
	return "", lastErr
}
