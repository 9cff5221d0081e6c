package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupGeneratorFallsBack(t *testing.T) {
	broken := &fakeGenerator{errs: []error{errors.New("primary down")}}
	healthy := &fakeGenerator{replies: []string{"from fallback"}}
	g := NewGroupGenerator([]GeneratorEntry{
		{Name: "primary", Generator: broken},
		{Name: "fallback", Generator: healthy},
	})

	res, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, "from fallback", res)
	require.Equal(t, 1, broken.calls)
	require.Equal(t, 1, healthy.calls)
}

func TestGroupGeneratorPrimaryWins(t *testing.T) {
	primary := &fakeGenerator{replies: []string{"from primary"}}
	fallback := &fakeGenerator{replies: []string{"unused"}}
	g := NewGroupGenerator([]GeneratorEntry{
		{Name: "primary", Generator: primary},
		{Name: "fallback", Generator: fallback},
	})

	res, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, "from primary", res)
	require.Zero(t, fallback.calls)
}

func TestGroupGeneratorAllFail(t *testing.T) {
	boom := errors.New("down")
	g := NewGroupGenerator([]GeneratorEntry{
		{Name: "a", Generator: &fakeGenerator{errs: []error{boom}}},
		{Name: "b", Generator: &fakeGenerator{errs: []error{boom}}},
	})

	_, err := g.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, boom)
}

func TestGroupGeneratorEmpty(t *testing.T) {
	require.Nil(t, NewGroupGenerator(nil))
}
