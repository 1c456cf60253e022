// Package apitest runs an in-memory stand-in for the scan service so client
// code can be exercised over real HTTP.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/entro314-labs/bigkill/internal/api"
)

type Server struct {
	*httptest.Server

	mu        sync.Mutex
	statuses  []api.WireStatus
	files     []api.FileRecord
	calls     map[string]int
	scans     []url.Values
	failCodes map[string]int
}

// New starts a server that reports idle and has no files.
func New() *Server {
	s := &Server{
		statuses:  []api.WireStatus{{Status: "idle"}},
		calls:     map[string]int{},
		failCodes: map[string]int{},
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.POST("/scan", s.scan)
	e.GET("/status", s.status)
	e.GET("/files", s.listFiles)
	e.DELETE("/delete/:id", s.deleteOne)
	e.DELETE("/delete-all-safe", s.deleteAllSafe)
	e.POST("/open/:id", s.open)

	s.Server = httptest.NewServer(e)
	return s
}

// Route names used by Calls and Fail.
const (
	RouteScan          = "POST /scan"
	RouteStatus        = "GET /status"
	RouteFiles         = "GET /files"
	RouteDelete        = "DELETE /delete"
	RouteDeleteAllSafe = "DELETE /delete-all-safe"
	RouteOpen          = "POST /open"
)

// SetStatuses queues status responses. Each poll consumes one; the last one
// repeats forever.
func (s *Server) SetStatuses(statuses ...api.WireStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(statuses) == 0 {
		statuses = []api.WireStatus{{Status: "idle"}}
	}
	s.statuses = append([]api.WireStatus(nil), statuses...)
}

func (s *Server) SetFiles(files ...api.FileRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append([]api.FileRecord(nil), files...)
}

func (s *Server) Files() []api.FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.FileRecord(nil), s.files...)
}

// Fail makes route answer with code until Fail(route, 0) is called.
func (s *Server) Fail(route string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code == 0 {
		delete(s.failCodes, route)
		return
	}
	s.failCodes[route] = code
}

func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Scans returns the query of every POST /scan received.
func (s *Server) Scans() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.scans...)
}

// enter records the call and reports an injected failure code, if any.
func (s *Server) enter(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[route]++
	return s.failCodes[route]
}

func detail(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"detail": msg})
}

func (s *Server) scan(c echo.Context) error {
	code := s.enter(RouteScan)
	s.mu.Lock()
	s.scans = append(s.scans, c.QueryParams())
	s.mu.Unlock()
	if code != 0 {
		return detail(c, code, "Path does not exist")
	}
	if c.QueryParam("path") == "" {
		return detail(c, http.StatusBadRequest, "Path does not exist")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Scan started in background", "status": "scanning"})
}

func (s *Server) status(c echo.Context) error {
	if code := s.enter(RouteStatus); code != 0 {
		return detail(c, code, "status unavailable")
	}
	s.mu.Lock()
	st := s.statuses[0]
	if len(s.statuses) > 1 {
		s.statuses = s.statuses[1:]
	}
	s.mu.Unlock()
	return c.JSON(http.StatusOK, st)
}

func (s *Server) listFiles(c echo.Context) error {
	if code := s.enter(RouteFiles); code != 0 {
		return detail(c, code, "database unavailable")
	}
	return c.JSON(http.StatusOK, s.Files())
}

func (s *Server) deleteOne(c echo.Context) error {
	if code := s.enter(RouteDelete); code != 0 {
		return detail(c, code, "delete failed")
	}
	id := api.FileID(c.Param("id"))
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.files {
		if f.ID == id {
			s.files = append(s.files[:i:i], s.files[i+1:]...)
			return c.JSON(http.StatusOK, map[string]string{"message": "Successfully deleted " + f.Filename})
		}
	}
	return detail(c, http.StatusNotFound, "File not found in database")
}

func (s *Server) deleteAllSafe(c echo.Context) error {
	if code := s.enter(RouteDeleteAllSafe); code != 0 {
		return detail(c, code, "Error deleting files after 0 deletions")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]api.FileRecord, 0, len(s.files))
	deleted := 0
	for _, f := range s.files {
		if f.IsSafeToDelete {
			deleted++
			continue
		}
		kept = append(kept, f)
	}
	if deleted == 0 {
		return c.JSON(http.StatusOK, map[string]string{"message": "No safe files found to delete."})
	}
	s.files = kept
	return c.JSON(http.StatusOK, map[string]string{"message": fmt.Sprintf("Successfully deleted %d safe files.", deleted)})
}

func (s *Server) open(c echo.Context) error {
	if code := s.enter(RouteOpen); code != 0 {
		return detail(c, code, "File no longer exists on disk")
	}
	id := api.FileID(c.Param("id"))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		if f.ID == id {
			return c.JSON(http.StatusOK, map[string]string{"message": "Opened file location"})
		}
	}
	return detail(c, http.StatusNotFound, "File not found in database")
}
