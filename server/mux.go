package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tutorlab/signaling/server/logger"
)

type Mux struct {
	BaseURL string
	handler *chi.Mux
	version string
}

func (mux *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux.handler.ServeHTTP(w, r)
}

func NewMux(
	log logger.Logger,
	baseURL string,
	version string,
	wss *WSS,
	rooms RoomStore,
	connections ConnectionStore,
	prom PrometheusConfig,
) *Mux {
	log = log.WithNamespaceAppended("mux")

	handler := chi.NewRouter()
	mux := &Mux{
		BaseURL: baseURL,
		handler: handler,
		version: version,
	}

	var root string
	if baseURL == "" {
		root = "/"
	} else {
		root = baseURL
	}

	handler.Route(root, func(router chi.Router) {
		router.Get("/probes/liveness", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
		})
		router.Get("/probes/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
		})
		router.Get("/status", mux.routeStatus(log, rooms, connections))
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			accessToken := r.Header.Get("Authorization")
			if strings.HasPrefix(accessToken, "Bearer ") {
				accessToken = accessToken[len("Bearer "):]
			} else {
				accessToken = r.FormValue("access_token")
			}

			if accessToken == "" || accessToken != prom.AccessToken {
				w.WriteHeader(http.StatusUnauthorized)

				return
			}

			promhttp.Handler().ServeHTTP(w, r)
		})

		router.Mount("/ws", wss)
	})

	return mux
}

func (mux *Mux) routeStatus(
	log logger.Logger,
	rooms RoomStore,
	connections ConnectionStore,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		numRooms, err := rooms.NumRooms()
		if err != nil {
			log.Error("Count rooms", err, nil)
			w.WriteHeader(http.StatusInternalServerError)

			return
		}

		numConns, err := connections.NumConnections()
		if err != nil {
			log.Error("Count connections", err, nil)
			w.WriteHeader(http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "application/json")

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"version":     mux.version,
			"rooms":       numRooms,
			"connections": numConns,
		})
	}
}
