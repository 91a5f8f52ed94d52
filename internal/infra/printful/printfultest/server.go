// Package printfultest provides an in-process fake of the Printful endpoints
// used by the storefront.
package printfultest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

type Extra struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type Order struct {
	ExternalID string
	Body       map[string]any
}

// Server records calls and answers with canned results. Zero-value knobs give
// a fully successful flow.
type Server struct {
	*httptest.Server

	mu sync.Mutex

	UploadStatus int
	OrderStatus  int
	// MockupStatus is returned by every task poll: "completed", "failed" or "pending".
	MockupStatus string
	MockupError  string
	PrimaryURL   string
	Extras       []Extra
	// PendingPolls makes the first N polls report "pending".
	PendingPolls int

	Uploads     int
	UploadNames []string
	Orders      []Order
	TaskCreates int
	TaskPolls   int
	AuthHeaders []string
}

func NewServer() *Server {
	s := &Server{
		MockupStatus: "completed",
		PrimaryURL:   "https://files.example.test/mockup-primary.jpg",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /files", s.handleUpload)
	mux.HandleFunc("POST /orders", s.handleOrder)
	mux.HandleFunc("POST /mockup-generator/create-task/{product}", s.handleCreateTask)
	mux.HandleFunc("GET /mockup-generator/task", s.handleTask)
	s.Server = httptest.NewServer(mux)
	return s
}

func (s *Server) Set(fn func(s *Server)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *Server) Snapshot() (uploads int, orders []Order, polls int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Uploads, append([]Order(nil), s.Orders...), s.TaskPolls
}

func writeResult(w http.ResponseWriter, status int, result any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"code": status, "result": result})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AuthHeaders = append(s.AuthHeaders, r.Header.Get("Authorization"))

	if s.UploadStatus != 0 && s.UploadStatus != http.StatusOK {
		http.Error(w, `{"code":400,"error":{"reason":"BadRequest","message":"bad file"}}`, s.UploadStatus)
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer f.Close()
	_, _ = io.Copy(io.Discard, f)

	s.Uploads++
	s.UploadNames = append(s.UploadNames, hdr.Filename)
	writeResult(w, http.StatusOK, map[string]any{
		"id":  1000 + s.Uploads,
		"url": fmt.Sprintf("https://files.example.test/%s", hdr.Filename),
	})
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.OrderStatus != 0 && s.OrderStatus != http.StatusOK {
		http.Error(w, `{"code":500,"error":{"reason":"Internal","message":"boom"}}`, s.OrderStatus)
		return
	}
	if r.URL.Query().Get("confirm") == "true" {
		http.Error(w, "orders must be drafts", http.StatusBadRequest)
		return
	}
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ext, _ := body["external_id"].(string)
	s.Orders = append(s.Orders, Order{ExternalID: ext, Body: body})
	writeResult(w, http.StatusOK, map[string]any{
		"id":     5000 + len(s.Orders),
		"status": "draft",
	})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TaskCreates++
	writeResult(w, http.StatusOK, map[string]any{
		"task_key": fmt.Sprintf("gt-%d", s.TaskCreates),
		"status":   "pending",
	})
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TaskPolls++

	if !strings.HasPrefix(r.URL.Query().Get("task_key"), "gt-") {
		http.Error(w, "unknown task", http.StatusNotFound)
		return
	}

	status := s.MockupStatus
	if s.TaskPolls <= s.PendingPolls {
		status = "pending"
	}
	res := map[string]any{
		"task_key": r.URL.Query().Get("task_key"),
		"status":   status,
	}
	switch status {
	case "completed":
		res["mockups"] = []map[string]any{{
			"placement":  "default",
			"mockup_url": s.PrimaryURL,
			"extra":      s.Extras,
		}}
	case "failed":
		res["error"] = s.MockupError
	}
	writeResult(w, http.StatusOK, res)
}
