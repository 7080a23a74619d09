package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/rouse/internal/config"
	"github.com/yairfalse/rouse/internal/handler"
	"github.com/yairfalse/rouse/internal/plugin"
	"github.com/yairfalse/rouse/pkg/instance"
)

type fakePlugin struct {
	name      string
	instances []instance.Instance
}

func (f *fakePlugin) Name() string { return f.name }

func (f *fakePlugin) ListInstances(context.Context) ([]instance.Instance, error) {
	return f.instances, nil
}

func (f *fakePlugin) StartInstances(context.Context, []string) error { return nil }

func factoryFor(p plugin.Plugin) PluginFactory {
	return func(context.Context, *config.Config, zerolog.Logger) (plugin.Plugin, error) {
		return p, nil
	}
}

func TestNew_WiresHandler(t *testing.T) {
	plugin.Clear()
	defer plugin.Clear()

	p := &fakePlugin{name: "aws", instances: []instance.Instance{{
		ID:       "i-abc",
		Tags:     map[string]string{"devcontainer": "arm64.medium"},
		RawState: "running",
		PublicIP: "203.0.113.5",
	}}}

	a, err := New(context.Background(), config.Default(), zerolog.Nop(), factoryFor(p))
	require.NoError(t, err)
	defer func() { _ = a.Close(context.Background()) }()

	resp, err := a.Handler.Handle(context.Background(), handler.Request{
		Tags: []handler.TagInput{{Key: "devcontainer", Value: "arm64.medium"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "i-abc", resp.ID)
	assert.Equal(t, "203.0.113.5", resp.IP)
	assert.Empty(t, resp.Actions)

	a.Flush(context.Background())
}

func TestNew_UnknownProvider(t *testing.T) {
	plugin.Clear()
	defer plugin.Clear()

	cfg := config.Default()
	cfg.Provider = "gcp"

	_, err := New(context.Background(), cfg, zerolog.Nop(), factoryFor(&fakePlugin{name: "aws"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `provider "gcp" not registered`)
}

func TestNew_FactoryError(t *testing.T) {
	plugin.Clear()
	defer plugin.Clear()

	factory := func(context.Context, *config.Config, zerolog.Logger) (plugin.Plugin, error) {
		return nil, errors.New("no credentials")
	}

	_, err := New(context.Background(), config.Default(), zerolog.Nop(), factory)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials")
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Reconcile.Timeout = 0

	_, err := New(context.Background(), cfg, zerolog.Nop(), factoryFor(&fakePlugin{name: "aws"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

// isolateAWSEnv points the SDK at empty shared files so the host's
// profile and region never leak into the test.
func isolateAWSEnv(t *testing.T) {
	t.Helper()
	empty := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	t.Setenv("AWS_CONFIG_FILE", empty)
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", empty)
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "")
	t.Setenv("AWS_PROFILE", "")
}

func TestAWSPlugin_Region(t *testing.T) {
	isolateAWSEnv(t)

	cfg := config.Default()
	cfg.AWS.Region = "eu-west-1"

	p, err := AWSPlugin(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "aws", p.Name())
}

func TestAWSPlugin_NoRegion(t *testing.T) {
	isolateAWSEnv(t)

	_, err := AWSPlugin(context.Background(), config.Default(), zerolog.Nop())
	assert.ErrorIs(t, err, ErrNoRegion)
}
