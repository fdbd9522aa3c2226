package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatch(t *testing.T, env *testEnv, body string) WatchView {
	t.Helper()
	resp, err := http.Post(env.srv.URL+"/api/watch", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var v WatchView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	require.NotEmpty(t, v.ID)
	return v
}

func getWatch(t *testing.T, env *testEnv, id string) (WatchView, int) {
	t.Helper()
	resp, err := http.Get(env.srv.URL + "/api/watch/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	var v WatchView
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	}
	return v, resp.StatusCode
}

func deleteWatch(t *testing.T, env *testEnv, id string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, env.srv.URL+"/api/watch/"+id, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestWatchLifecycle(t *testing.T) {
	env := newTestEnv(t, envOptions{device: defaultDevice()})

	v := startWatch(t, env, `{"interval":20}`)
	assert.True(t, env.sdk.IsStarted())

	require.Eventually(t, func() bool {
		got, code := getWatch(t, env, v.ID)
		return code == http.StatusOK && got.Updates >= 2 && got.Latest != nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, http.StatusNoContent, deleteWatch(t, env, v.ID))
	assert.False(t, env.sdk.IsStarted())
	assert.Equal(t, 0, env.mgr.Registry().Len())

	_, code := getWatch(t, env, v.ID)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, http.StatusNotFound, deleteWatch(t, env, v.ID))
}

func TestWatchStart_EmptyBodyUsesDefaults(t *testing.T) {
	env := newTestEnv(t, envOptions{device: defaultDevice()})

	resp, err := http.Post(env.srv.URL+"/api/watch", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestWatchStart_Errors(t *testing.T) {
	t.Run("BadBody", func(t *testing.T) {
		env := newTestEnv(t, envOptions{device: defaultDevice()})
		resp, err := http.Post(env.srv.URL+"/api/watch", "application/json", bytes.NewBufferString("{"))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("NotInitialized", func(t *testing.T) {
		env := newTestEnv(t, envOptions{device: defaultDevice(), noInit: true})
		resp, err := http.Post(env.srv.URL+"/api/watch", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("StartFailure", func(t *testing.T) {
		dev := defaultDevice()
		dev.FailStart = true
		env := newTestEnv(t, envOptions{device: dev})
		resp, err := http.Post(env.srv.URL+"/api/watch", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, 0, env.handlers.Watch.Len())
	})
}

func TestWatch_AbandonedWatchIsCleared(t *testing.T) {
	env := newTestEnv(t, envOptions{device: defaultDevice(), watchTTL: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go env.handlers.Watch.RunSweeper(ctx, 10*time.Millisecond)

	v := startWatch(t, env, `{"interval":20}`)
	require.True(t, env.sdk.IsStarted())

	require.Eventually(t, func() bool {
		return env.handlers.Watch.Len() == 0 && env.mgr.Registry().Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, env.sdk.IsStarted())

	_, code := getWatch(t, env, v.ID)
	assert.Equal(t, http.StatusNotFound, code)
}
