package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marco/recofilms/internal/catalog"
	"github.com/marco/recofilms/internal/gate"
)

func TestReport(t *testing.T) {
	refused := &catalog.NetworkFailure{
		Op:    catalog.OpStatus,
		Cause: &url.Error{Op: "Get", URL: "http://localhost:8000/api/status", Err: errors.New("connection refused")},
	}

	tests := []struct {
		name   string
		err    error
		prefix string
	}{
		{"transport failure", fmt.Errorf("%w: %w", gate.ErrUnreachable, refused), "unreachable: "},
		{"not ready", fmt.Errorf("%w: embeddings not built", gate.ErrNotReady), "warning: "},
		{"missing movie", catalog.Failed(catalog.OpMovieDetails, &catalog.NetworkFailure{
			Op: catalog.OpMovieDetails, StatusCode: 404, Cause: catalog.ErrMovieNotFound,
		}), "not found: "},
		{"server error", &catalog.NetworkFailure{Op: catalog.OpDiscover, StatusCode: 500, Cause: errors.New("boom")}, "error: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			report(&buf, tt.err)
			assert.True(t, strings.HasPrefix(buf.String(), tt.prefix), "got %q", buf.String())
		})
	}
}

func TestRuntime(t *testing.T) {
	assert.Equal(t, "2h28", runtime(catalog.Movie{Runtime: catalog.IntPtr(148)}))
	assert.Equal(t, "-", runtime(catalog.Movie{}))
}
