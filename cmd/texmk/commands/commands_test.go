package commands_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/texmk/cmd/texmk/commands"
	"go.trai.ch/texmk/internal/app"
	"go.trai.ch/texmk/internal/build"
)

type mockApp struct {
	buildFunc func(ctx context.Context, sources []string, opts app.BuildOptions) error
	watchFunc func(ctx context.Context, sources []string, opts app.BuildOptions) error
	cleanFunc func(ctx context.Context, sources []string, opts app.CleanOptions) error
}

func (m *mockApp) Build(ctx context.Context, sources []string, opts app.BuildOptions) error {
	if m.buildFunc != nil {
		return m.buildFunc(ctx, sources, opts)
	}
	return nil
}

func (m *mockApp) Watch(ctx context.Context, sources []string, opts app.BuildOptions) error {
	if m.watchFunc != nil {
		return m.watchFunc(ctx, sources, opts)
	}
	return nil
}

func (m *mockApp) Clean(ctx context.Context, sources []string, opts app.CleanOptions) error {
	if m.cleanFunc != nil {
		return m.cleanFunc(ctx, sources, opts)
	}
	return nil
}

func TestCommands_Build(t *testing.T) {
	t.Run("wires flags correctly", func(t *testing.T) {
		var capturedOpts app.BuildOptions
		var capturedSources []string
		called := false

		mock := &mockApp{
			buildFunc: func(_ context.Context, sources []string, opts app.BuildOptions) error {
				capturedOpts = opts
				capturedSources = sources
				called = true
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"build", "thesis.tex", "--dvi", "--tex-command", "xelatex", "--max-runs", "7", "--status", "--check-cite"})

		err := cli.Execute(context.Background())
		require.NoError(t, err)
		assert.True(t, called)
		assert.True(t, capturedOpts.DVI)
		assert.Equal(t, "xelatex", capturedOpts.TexCommand)
		assert.Equal(t, 7, capturedOpts.MaxRuns)
		assert.True(t, capturedOpts.Status)
		assert.True(t, capturedOpts.CheckCite)
		assert.Equal(t, []string{"thesis.tex"}, capturedSources)
	})

	t.Run("defaults leave options zero", func(t *testing.T) {
		var capturedOpts app.BuildOptions

		mock := &mockApp{
			buildFunc: func(_ context.Context, _ []string, opts app.BuildOptions) error {
				capturedOpts = opts
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"build"})

		require.NoError(t, cli.Execute(context.Background()))
		assert.Equal(t, app.BuildOptions{}, capturedOpts)
	})

	t.Run("returns error on build failure", func(t *testing.T) {
		mock := &mockApp{
			buildFunc: func(_ context.Context, _ []string, _ app.BuildOptions) error {
				return errors.New("simulated error")
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"build", "thesis.tex"})
		// Silence output to avoid polluting test logs
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))

		err := cli.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "simulated error")
	})
}

func TestCommands_Watch(t *testing.T) {
	t.Run("wires debounce flag", func(t *testing.T) {
		var capturedOpts app.BuildOptions

		mock := &mockApp{
			watchFunc: func(_ context.Context, _ []string, opts app.BuildOptions) error {
				capturedOpts = opts
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"watch", "thesis.tex", "--debounce", "500ms"})

		require.NoError(t, cli.Execute(context.Background()))
		assert.Equal(t, 500*time.Millisecond, capturedOpts.Debounce)
	})
}

func TestCommands_Clean(t *testing.T) {
	t.Run("wires output flag", func(t *testing.T) {
		var capturedOpts app.CleanOptions

		mock := &mockApp{
			cleanFunc: func(_ context.Context, _ []string, opts app.CleanOptions) error {
				capturedOpts = opts
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"clean", "--output"})

		require.NoError(t, cli.Execute(context.Background()))
		assert.True(t, capturedOpts.Output)
	})
}

func TestCommands_Version(t *testing.T) {
	cli := commands.New(&mockApp{})
	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs([]string{"version"})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Contains(t, buf.String(), "texmk version "+build.Version)
}
