package api

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/odvcencio/pmrhub/internal/gitstore"
	"github.com/odvcencio/pmrhub/internal/models"
	"github.com/odvcencio/pmrhub/internal/service"
)

const sniffLen = 512

func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	body, err := s.workspaceListingJSON(r.Context())
	if err != nil {
		slog.Error("list workspaces", "error", err, "request_id", requestIDFromContext(r.Context()))
		jsonError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	jsonBytesResponse(w, http.StatusOK, body)
}

func (s *Server) handleWorkspaceTop(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspaceFromPath(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, s.workspaces.Record(r.Context(), ws))
}

func (s *Server) handlePathInfo(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspaceFromPath(w, r)
	if !ok {
		return
	}
	body, err := s.pathInfoJSON(r.Context(), ws, r.PathValue("commit"), r.PathValue("path"))
	if err != nil {
		s.resolveError(w, r, err, ws.ID)
		return
	}
	jsonBytesResponse(w, http.StatusOK, body)
}

func (s *Server) handleObjectInfo(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspaceFromPath(w, r)
	if !ok {
		return
	}
	res, err := s.resolve(r.Context(), ws, r.PathValue("commit"), r.PathValue("path"))
	if err != nil {
		s.resolveError(w, r, err, ws.ID)
		return
	}
	defer res.Close()
	jsonResponse(w, http.StatusOK, service.ObjectInfo(res))
}

// subRepoRedirect tells the client where to fetch content that lives in an
// embedded repository.
type subRepoRedirect struct {
	Location    string `json:"location"`
	Commit      string `json:"commit"`
	Path        string `json:"path"`
	Target      string `json:"target"`
	WorkspaceID *int64 `json:"workspace_id,omitempty"`
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspaceFromPath(w, r)
	if !ok {
		return
	}
	p := r.PathValue("path")
	res, err := s.resolve(r.Context(), ws, r.PathValue("commit"), p)
	if err != nil {
		s.resolveError(w, r, err, ws.ID)
		return
	}
	defer res.Close()

	if boundary, ok := res.Target.(*service.SubRepoBoundary); ok {
		jsonResponse(w, http.StatusOK, s.subRepoRedirect(r, boundary))
		return
	}

	stream, err := s.workspaces.OpenBlob(res)
	if err != nil {
		s.resolveError(w, r, err, ws.ID)
		return
	}
	defer stream.Close()

	br := bufio.NewReaderSize(stream, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		s.resolveError(w, r, err, ws.ID)
		return
	}
	w.Header().Set("Content-Type", contentTypeForPath(p, head))
	w.Header().Set("Content-Length", strconv.FormatInt(stream.Size, 10))
	w.Header().Set("ETag", `"`+stream.ID+`"`)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "sandbox")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, br); err != nil {
		slog.Warn("raw content copy interrupted", "workspace_id", ws.ID, "path", p, "error", err)
	}
}

// subRepoRedirect points at this server's raw route when the location is a
// registered workspace, and at <location>/raw/<commit>/<path> otherwise.
func (s *Server) subRepoRedirect(r *http.Request, b *service.SubRepoBoundary) subRepoRedirect {
	rawPath := "/raw/" + url.PathEscape(b.Commit) + "/" + escapeSegments(service.SplitPath(b.Path))
	out := subRepoRedirect{
		Location: b.Location,
		Commit:   b.Commit,
		Path:     b.Path,
		Target:   strings.TrimRight(b.Location, "/") + rawPath,
	}
	target, err := s.workspaces.FindByURL(r.Context(), b.Location)
	if err != nil {
		if !errors.Is(err, service.ErrWorkspaceNotFound) {
			slog.Warn("sub-repository lookup failed", "location", b.Location, "error", err)
		}
		return out
	}
	prefix := "/api/workspace/"
	if strings.HasPrefix(r.URL.Path, "/workspace/") {
		prefix = "/workspace/"
	}
	out.WorkspaceID = &target.ID
	out.Target = prefix + strconv.FormatInt(target.ID, 10) + rawPath
	return out
}

func (s *Server) workspaceFromPath(w http.ResponseWriter, r *http.Request) (*models.Workspace, bool) {
	id, ok := parsePathPositiveInt64(w, r, "id", "workspace id")
	if !ok {
		return nil, false
	}
	ws, err := s.workspaces.Get(r.Context(), id)
	if err != nil {
		s.resolveError(w, r, err, id)
		return nil, false
	}
	return ws, true
}

// resolve wraps ResolvePath with outcome accounting.
func (s *Server) resolve(ctx context.Context, ws *models.Workspace, ref, p string) (*service.PathResolution, error) {
	res, err := s.workspaces.ResolvePath(ctx, ws, ref, p)
	switch {
	case err == nil:
		s.metrics.observeResolve(resolveOutcome(res))
	case service.IsNotFound(err):
		s.metrics.observeResolve(resolveResultNotFound)
	default:
		s.metrics.observeResolve(resolveResultError)
	}
	return res, err
}

func resolveOutcome(res *service.PathResolution) string {
	switch t := res.Target.(type) {
	case *service.SubRepoBoundary:
		return resolveResultSubRepo
	case *service.ObjectTarget:
		if t.Kind == gitstore.KindBlob {
			return resolveResultBlob
		}
		return resolveResultTree
	default:
		return resolveResultError
	}
}

func (s *Server) pathInfoJSON(ctx context.Context, ws *models.Workspace, ref, p string) ([]byte, error) {
	res, err := s.resolve(ctx, ws, ref, p)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	return encodeJSON(service.PathInfo(ws, res))
}

func (s *Server) workspaceListingJSON(ctx context.Context) ([]byte, error) {
	workspaces, err := s.workspaces.List(ctx)
	if err != nil {
		return nil, err
	}
	return encodeJSON(models.WorkspaceRecords{Workspaces: workspaces})
}

// resolveError maps resolver failures onto HTTP statuses. Not-found
// conditions are client input problems and never surface as 500.
func (s *Server) resolveError(w http.ResponseWriter, r *http.Request, err error, workspaceID int64) {
	status, message := resolveErrorStatus(err)
	attrs := []any{
		"workspace_id", workspaceID,
		"commit", r.PathValue("commit"),
		"path", r.PathValue("path"),
		"request_id", requestIDFromContext(r.Context()),
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		slog.Error("workspace request failed", attrs...)
	} else {
		slog.Info("workspace request rejected", attrs...)
	}
	jsonError(w, message, status)
}

func resolveErrorStatus(err error) (int, string) {
	for _, sentinel := range []error{
		service.ErrWorkspaceNotFound,
		service.ErrRepositoryUnavailable,
		service.ErrCommitNotFound,
		service.ErrPathNotFound,
		service.ErrNotABlob,
	} {
		if errors.Is(err, sentinel) {
			return http.StatusNotFound, sentinel.Error()
		}
	}
	if errors.Is(err, service.ErrBlobTooLarge) {
		return http.StatusRequestEntityTooLarge, service.ErrBlobTooLarge.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

// contentTypeForPath prefers the extension's registered type and falls back
// to sniffing the first bytes.
func contentTypeForPath(rel string, head []byte) string {
	ext := strings.ToLower(path.Ext(rel))
	switch ext {
	case ".cellml", ".xml", ".xul", ".sedml":
		return "application/xml"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript; charset=utf-8"
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".svg":
		return "image/svg+xml"
	}
	if ext != "" {
		if mt := mime.TypeByExtension(ext); mt != "" {
			return mt
		}
	}
	return http.DetectContentType(head)
}
