package main

import (
	"log/slog"
	"testing"

	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transitperf.dev/internal/app"
	"transitperf.dev/internal/appconf"
)

func TestParseRouteIDs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Single route",
			input:    "C4",
			expected: []string{"C4"},
		},
		{
			name:     "Multiple routes",
			input:    "C4,D12,A9",
			expected: []string{"C4", "D12", "A9"},
		},
		{
			name:     "Routes with spaces",
			input:    " C4 , D12 , A9 ",
			expected: []string{"C4", "D12", "A9"},
		},
		{
			name:     "Empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "Stray commas dropped",
			input:    ",C4,,D12,",
			expected: []string{"C4", "D12"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseRouteIDs(tt.input))
		})
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	opts, err := parseFlags(nil)
	require.NoError(t, err)

	assert.Equal(t, "development", opts.env)
	assert.False(t, opts.batch)
	assert.False(t, opts.dump)
	assert.Equal(t, 7, opts.days)
	assert.Equal(t, 50, opts.minPositions)
}

func TestParseFlags_Overrides(t *testing.T) {
	opts, err := parseFlags([]string{
		"--db", ":memory:",
		"--env", "test",
		"--days", "3",
		"--route", "C4,D12",
		"--batch",
		"--dump",
	})
	require.NoError(t, err)

	assert.Equal(t, ":memory:", opts.dbPath)
	assert.Equal(t, "test", opts.env)
	assert.Equal(t, 3, opts.days)
	assert.Equal(t, []string{"C4", "D12"}, ParseRouteIDs(opts.routes))
	assert.True(t, opts.batch)
	assert.True(t, opts.dump)
}

func TestParseFlags_UnknownFlag(t *testing.T) {
	_, err := parseFlags([]string{"--nope"})
	assert.Error(t, err)
}

func TestBuildApplicationWithMemoryDB(t *testing.T) {
	cfg := appconf.Config{
		Env:    appconf.Test,
		DBPath: ":memory:",
	}

	application, err := app.Build(cfg, slog.Default())
	require.NoError(t, err)
	require.NotNil(t, application)

	assert.NotNil(t, application.Logger)
	assert.NotNil(t, application.DB)
	assert.NotNil(t, application.Metrics)
	assert.NotNil(t, application.Clock)
	assert.Equal(t, cfg, application.Config)

	require.NoError(t, application.Shutdown())
}
