package statsnotif_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/programme-lv/judgeworker/srvcerror"
	"github.com/programme-lv/judgeworker/statsnotif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyAcceptedPostsPayload(t *testing.T) {
	var got map[string]string
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := statsnotif.NewHttpNotifier(srv.URL+"/", time.Second)
	err := n.NotifyAccepted(context.Background(), "u1", "p1")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/statistics", gotPath)
	assert.Equal(t, map[string]string{"userId": "u1", "problemId": "p1"}, got)
}

func TestNotifyAcceptedNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := statsnotif.NewHttpNotifier(srv.URL, time.Second)
	err := n.NotifyAccepted(context.Background(), "u1", "p1")
	require.Error(t, err)
	assert.True(t, srvcerror.HasCode(err, statsnotif.ErrCodeStatsNotifyFailed))
	assert.Contains(t, err.Error(), "status 500")
}

func TestNotifyAcceptedTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	n := statsnotif.NewHttpNotifier(srv.URL, 50*time.Millisecond)
	err := n.NotifyAccepted(context.Background(), "u1", "p1")
	require.Error(t, err)
	assert.True(t, srvcerror.HasCode(err, statsnotif.ErrCodeStatsNotifyFailed))
}
