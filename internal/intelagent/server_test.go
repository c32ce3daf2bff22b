package intelagent

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/repo-intel/internal/llm"
)

func TestInvocations_Completed(t *testing.T) {
	p := &scriptedProvider{responses: []*llm.CompletionResponse{
		{Text: analysisJSON, StopReason: llm.StopReasonEndTurn},
	}}
	srv := NewServer(newTestAgent(p, &fakeBroker{}), zerolog.Nop())

	req, _ := http.NewRequest(http.MethodPost, "/invocations",
		strings.NewReader(`{"repository_url":"https://github.com/octo/hello"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", "session-0123456789abcdef0123456789abcdef")

	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply Reply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Equal(t, StatusCompleted, reply.Status)
	require.NotNil(t, reply.Analysis)
	assert.Equal(t, "A web framework.", reply.Analysis.Summary)
}

func TestInvocations_MissingURLStillReturns200(t *testing.T) {
	srv := NewServer(newTestAgent(&scriptedProvider{}, &fakeBroker{}), zerolog.Nop())

	req, _ := http.NewRequest(http.MethodPost, "/invocations", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply Reply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Equal(t, StatusFailed, reply.Status)
	assert.Equal(t, "repository_url is required in payload", reply.Error)
}

func TestInvocations_MalformedBody(t *testing.T) {
	srv := NewServer(newTestAgent(&scriptedProvider{}, &fakeBroker{}), zerolog.Nop())

	req, _ := http.NewRequest(http.MethodPost, "/invocations", strings.NewReader(`{broken`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
