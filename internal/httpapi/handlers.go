// ABOUTME: HTTP handlers for the read-only API
// ABOUTME: Response shapes match the MCP tool results
package httpapi

import (
	"net/http"
	"strconv"
	"strings"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "up", "db": s.store.Path()})
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": projects})
}

func (s *Server) projectStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(r)
	if !ok {
		badRequest(w, "invalid project id")
		return
	}
	status, err := s.store.GetProjectStatus(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) buildProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(r)
	if !ok {
		badRequest(w, "invalid project id")
		return
	}
	progress, err := s.store.BuildProgress(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"project_id": id, "progress": progress})
}

func (s *Server) projectHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(r)
	if !ok {
		badRequest(w, "invalid project id")
		return
	}
	limit, ok := limitParam(r, defaultListLimit)
	if !ok {
		badRequest(w, "limit must be a positive integer")
		return
	}
	messages, err := s.store.History(id, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(r)
	if !ok {
		badRequest(w, "invalid project id")
		return
	}
	files, err := s.store.ListFiles(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"files": files})
}

func (s *Server) listModules(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(r)
	if !ok {
		badRequest(w, "invalid project id")
		return
	}
	modules, err := s.store.ListModules(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"modules": modules})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		badRequest(w, "q is required")
		return
	}
	var project int64
	if raw := r.URL.Query().Get("project"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			badRequest(w, "project must be a positive integer")
			return
		}
		project = id
	}
	messages, err := s.store.SearchMessages(query, project)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages, "count": len(messages)})
}

func (s *Server) systemModules(w http.ResponseWriter, r *http.Request) {
	modules, err := s.store.ListSystemModules()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"modules": modules})
}

func (s *Server) systemHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(r, defaultListLimit)
	if !ok {
		badRequest(w, "limit must be a positive integer")
		return
	}
	entries, err := s.store.SystemStatusHistory(r.URL.Query().Get("module"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": entries})
}

func (s *Server) securityEvents(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(r, defaultListLimit)
	if !ok {
		badRequest(w, "limit must be a positive integer")
		return
	}
	events, err := s.store.RecentSecurityEvents(limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}
