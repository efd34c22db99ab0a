package plugins

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasePlugin_Metadata(t *testing.T) {
	p := NewBasePlugin("hello", "Hello", "greets", "v1.0.0", 10,
		WithDependencies(Requires("db")),
	)
	assert.Equal(t, "hello", p.ID())
	assert.Equal(t, "Hello", p.Name())
	assert.Equal(t, "greets", p.Description())
	assert.Equal(t, "v1.0.0", p.Version())
	assert.Equal(t, 10, p.Weight())

	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Stop(context.Background()))

	var _ Plugin = p
	var _ DependencyAware = p
}

func TestBasePlugin_Dependencies(t *testing.T) {
	p := NewBasePlugin("hello", "Hello", "", "v1", 0)
	assert.Nil(t, p.GetDependencies())

	p.AddDependency(After("cache"))
	p.AddDependency(Requires("db"))
	p.AddDependency(Requires("cache"))

	deps := p.GetDependencies()
	require.Len(t, deps, 2)
	assert.Equal(t, Dependency{ID: "cache", Required: true}, deps[0])

	deps[0].ID = "mutated"
	assert.Equal(t, "cache", p.GetDependencies()[0].ID)
}

func TestCheckPluginID(t *testing.T) {
	assert.NoError(t, CheckPluginID("hello"))
	assert.NoError(t, CheckPluginID("go-lynx.plugin.hello.v1"))

	for _, id := range []string{"", "  ", "a/b", "has space"} {
		err := CheckPluginID(id)
		assert.True(t, errors.Is(err, ErrInvalidPluginID), id)
	}
}

func TestGeneratePluginID(t *testing.T) {
	id := GeneratePluginID("", "hello", "1.0.0")
	assert.Equal(t, "go-lynx.plugin.hello.v1.0.0", id)
	assert.NoError(t, ValidatePluginID(id))
	assert.NoError(t, CheckPluginID(id))

	assert.ErrorIs(t, ValidatePluginID("hello"), ErrInvalidPluginID)
}

func TestPluginError(t *testing.T) {
	cause := errors.New("boom")
	err := NewPluginError("hello", "Start", "start failed", cause)
	assert.Equal(t, "plugin hello: start: start failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "plugin hello: stop: nope", NewPluginError("hello", "Stop", "nope", nil).Error())
	assert.Equal(t, "plugin hello: add", NewPluginError("hello", "Add", "", nil).Error())

	var perr *PluginError
	wrapped := fmt.Errorf("boot: %w", NewPluginError("welcome", "Start", "disabled", ErrPluginDisabled))
	require.True(t, errors.As(wrapped, &perr))
	assert.Equal(t, "welcome", perr.PluginID)
	assert.ErrorIs(t, wrapped, ErrPluginDisabled)
}

func TestPluginStatus_String(t *testing.T) {
	assert.Equal(t, "active", StatusActive.String())
	assert.Equal(t, "disabled", StatusDisabled.String())
	assert.Equal(t, "unknown", PluginStatus(99).String())
}
