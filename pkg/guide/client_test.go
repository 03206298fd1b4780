package guide

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpnow/pkg/llm"
	"helpnow/pkg/request"
)

func TestClient_Guide(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/guide", r.URL.Path)
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		switch req.Query {
		case "burn":
			_, _ = w.Write([]byte(`{"title":"Burns","steps":[{"instruction":"Cool it","type":"action","visualUrl":"u","alternativeUrls":["a","b"]}]}`))
		case "broken":
			_, _ = w.Write([]byte(`{"title":"Burns"}`))
		case "":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Query is required"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"Cerebras API request failed with status 503","timestamp":"2026-01-01T00:00:00.000Z"}`))
		}
	}))
	defer srv.Close()

	c := NewClient(request.New(nil, request.Options{}), srv.URL+"/")

	s, err := c.Guide(context.Background(), "burn")
	require.NoError(t, err)
	assert.Equal(t, "Burns", s.Title)
	assert.Equal(t, "u", s.Steps[0].VisualURL)

	_, err = c.Guide(context.Background(), "")
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusBadRequest, re.StatusCode)
	assert.Equal(t, "Query is required", re.Error())

	_, err = c.Guide(context.Background(), "stroke")
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "Cerebras API request failed with status 503", re.Error())

	_, err = c.Guide(context.Background(), "broken")
	var me *llm.MalformedResponseError
	assert.True(t, errors.As(err, &me))
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(request.New(nil, request.Options{}), url).Guide(context.Background(), "burn")
	require.Error(t, err)
	assert.Equal(t, DefaultFailureMessage, PublicMessage(err))
}
