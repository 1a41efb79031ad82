// Package api is the HTTP read API collaborator described in
// spec.md §6: a small read-only surface over the log's global byte
// offset namespace.
package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	carbonlog "carbonpool/internal/log"
)

// maxLimit caps the number of lines a single /metrics request may
// request, matching original_source/carbonpool/app.py's clamp.
const maxLimit = 1000

// NewServer returns an *http.Server routing the two read endpoints to
// log, with one handler method per route on a single server struct,
// the shape the teacher's internal/server/http.go uses for its
// produce/consume handlers.
func NewServer(addr string, log *carbonlog.Log) *http.Server {
	s := &server{log: log}
	r := mux.NewRouter()
	r.HandleFunc("/metrics", s.handleRead).Methods("GET")
	r.HandleFunc("/metrics/_offset", s.handleOffset).Methods("GET")
	return &http.Server{Addr: addr, Handler: r}
}

type server struct {
	log *carbonlog.Log
}

func (s *server) handleRead(w http.ResponseWriter, r *http.Request) {
	offset, err := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 64)
	if err != nil || offset < 0 {
		http.Error(w, "invalid offset", http.StatusBadRequest)
		return
	}

	limit := maxLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	if limit <= 0 {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	lines, next, err := s.log.Read(offset, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if next == carbonlog.Sentinel {
		http.Error(w, "invalid offset", http.StatusBadRequest)
		return
	}

	var body bytes.Buffer
	for _, line := range lines {
		body.Write(line)
	}

	w.Header().Set("Next-Offset", strconv.FormatInt(next, 10))
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write(body.Bytes())
}

func (s *server) handleOffset(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(strconv.FormatInt(s.log.Offset(), 10)))
}
