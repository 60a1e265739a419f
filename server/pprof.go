package server

import (
	"net/http"
	"net/http/pprof"
)

// NewPProf returns a server exposing the runtime profiling endpoints. It is
// meant to be bound to a loopback address.
func NewPProf() *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return New(Params{}, mux)
}
