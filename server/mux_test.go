package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorlab/signaling/server"
	"github.com/tutorlab/signaling/server/message"
	"github.com/tutorlab/signaling/server/test"
	"nhooyr.io/websocket"
)

const prometheusAccessToken = "prom1234"

func prom() server.PrometheusConfig {
	return server.PrometheusConfig{AccessToken: prometheusAccessToken}
}

func newTestMux(baseURL string) (*server.Mux, *server.MemoryRoomStore, *server.MemoryConnectionStore) {
	log := test.NewLogger()

	rooms := server.NewMemoryRoomStore()
	connections := server.NewMemoryConnectionStore()
	router := server.NewRouter(log, rooms, connections)
	wss := server.NewWSS(log, router, time.Minute)

	return server.NewMux(log, baseURL, "v0.0.0", wss, rooms, connections, prom()), rooms, connections
}

func Test_routeProbes(t *testing.T) {
	mux, _, _ := newTestMux("/test")

	for _, url := range []string{"/test/probes/liveness", "/test/probes/health"} {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", url, nil)

		mux.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code, "url: %s", url)
	}
}

func Test_routeProbes_noBaseURL(t *testing.T) {
	mux, _, _ := newTestMux("")

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/probes/liveness", nil)

	mux.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func Test_routeStatus(t *testing.T) {
	mux, rooms, connections := newTestMux("/test")

	client := newMockClient("sock-1")
	_, err := rooms.Join(room, "alice", client)
	require.NoError(t, err)
	connections.Register(newSession("sock-1", room, "alice"), client)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/test/status", nil)

	mux.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))

	assert.Equal(t, "v0.0.0", status["version"])
	assert.Equal(t, float64(1), status["rooms"])
	assert.Equal(t, float64(1), status["connections"])
}

func Test_routeWS(t *testing.T) {
	mux, _, _ := newTestMux("/test")

	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ws := mustDialWS(t, ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/test/ws")
	defer ws.Close(websocket.StatusNormalClosure, "")

	mustWriteWS(t, ctx, ws, message.NewJoin(room, "alice"))
	assert.Equal(t, message.NewJoined(room, "alice", 1), mustReadWS(t, ctx, ws))
}

func Test_Metrics(t *testing.T) {
	mux, _, _ := newTestMux("/test")

	for _, testCase := range []struct {
		statusCode    int
		authorization string
		url           string
	}{
		{401, "", "/test/metrics"},
		{401, "Bearer ", "/test/metrics"},
		{401, "Bearer", "/test/metrics"},
		{401, "Bearer invalid-token", "/test/metrics"},
		{200, "Bearer " + prometheusAccessToken, "/test/metrics"},
		{200, "", "/test/metrics?access_token=" + prometheusAccessToken},
		{401, "", "/test/metrics?access_token=invalid_token"},
	} {
		t.Run("URL: "+testCase.url+", Authorization: "+testCase.authorization, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", testCase.url, nil)
			r.Header.Set("Authorization", testCase.authorization)
			mux.ServeHTTP(w, r)
			assert.Equal(t, testCase.statusCode, w.Code)
		})
	}
}
