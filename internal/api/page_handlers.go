package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/odvcencio/pmrhub/internal/gitstore"
	"github.com/odvcencio/pmrhub/internal/models"
	"github.com/odvcencio/pmrhub/internal/service"
	"github.com/odvcencio/pmrhub/internal/web"
)

type linkView struct {
	Name string
	Href string
}

type entryView struct {
	Name string
	Kind gitstore.EntryKind
	Href string
}

type fileView struct {
	Size    int64
	RawHref string
}

type subRepoView struct {
	Location string
	Commit   string
	Path     string
	Href     string
}

// pathView is the template data for a path page. It is derived from the same
// WorkspacePathInfo that is embedded as page state.
type pathView struct {
	Info    *service.WorkspacePathInfo
	Crumbs  []linkView
	Entries []entryView
	File    *fileView
	SubRepo *subRepoView
}

// workspaceTop is the state embedded in a workspace top page: the record
// served at /api/workspace/{id}/ and the root listing served at
// /api/workspace/{id}/file/. PathInfo is nil when the root cannot be read.
type workspaceTop struct {
	Record   models.WorkspaceRecord     `json:"record"`
	PathInfo *service.WorkspacePathInfo `json:"path_info"`
}

type topView struct {
	Record models.WorkspaceRecord
	Root   *pathView
}

func (s *Server) handleHomePage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, "home", &web.Page{Title: "Physiome Model Repository", Section: "home"},
		web.Resource{Kind: web.ResourceHomepage}, nil)
}

func (s *Server) handleListingPage(w http.ResponseWriter, r *http.Request) {
	resource := web.Resource{Kind: web.ResourceWorkspaceListing}
	workspaces, err := s.workspaces.List(r.Context())
	if err != nil {
		s.pageError(w, r, resource, err, 0)
		return
	}
	listing := models.WorkspaceRecords{Workspaces: workspaces}
	body, err := encodeJSON(listing)
	if err != nil {
		s.pageError(w, r, resource, err, 0)
		return
	}
	s.renderPage(w, r, http.StatusOK, "listing", &web.Page{Title: "Workspace Listing", Section: "workspace", Data: listing}, resource, body)
}

func (s *Server) handleTopPage(w http.ResponseWriter, r *http.Request) {
	resource := web.Resource{Kind: web.ResourceWorkspaceTop}
	ws, ok := s.pageWorkspace(w, r, &resource)
	if !ok {
		return
	}
	top := workspaceTop{Record: s.workspaces.Record(r.Context(), ws)}
	view := &topView{Record: top.Record}
	res, err := s.resolve(r.Context(), ws, "", "")
	switch {
	case err == nil:
		top.PathInfo = service.PathInfo(ws, res)
		res.Close()
		view.Root = s.newPathView(r, top.PathInfo, "")
	case service.IsNotFound(err):
		slog.Info("workspace root unavailable", "workspace_id", ws.ID, "error", err)
	default:
		s.pageError(w, r, resource, err, ws.ID)
		return
	}
	body, err := encodeJSON(top)
	if err != nil {
		s.pageError(w, r, resource, err, ws.ID)
		return
	}
	title := "Workspace " + strconv.FormatInt(ws.ID, 10)
	if d := ws.DescriptionOrEmpty(); d != "" {
		title += " - " + d
	}
	s.renderPage(w, r, http.StatusOK, "top", &web.Page{Title: title, Section: "workspace", Data: view}, resource, body)
}

func (s *Server) handlePathPage(w http.ResponseWriter, r *http.Request) {
	ref, p := r.PathValue("commit"), r.PathValue("path")
	resource := web.Resource{Kind: web.ResourceWorkspacePathInfo, Commit: ref, Path: p}
	ws, ok := s.pageWorkspace(w, r, &resource)
	if !ok {
		return
	}
	res, err := s.resolve(r.Context(), ws, ref, p)
	if err != nil {
		s.pageError(w, r, resource, err, ws.ID)
		return
	}
	defer res.Close()

	info := service.PathInfo(ws, res)
	body, err := encodeJSON(info)
	if err != nil {
		s.pageError(w, r, resource, err, ws.ID)
		return
	}
	view := s.newPathView(r, info, ref)
	title := "Workspace " + strconv.FormatInt(ws.ID, 10)
	if info.Path != "" {
		title += " - " + info.Path
	}
	s.renderPage(w, r, http.StatusOK, "path", &web.Page{Title: title, Section: "workspace", Data: view}, resource, body)
}

func (s *Server) newPathView(r *http.Request, info *service.WorkspacePathInfo, ref string) *pathView {
	commit := ref
	if info.CommitID != nil {
		commit = *info.CommitID
	}
	base := "/workspace/" + strconv.FormatInt(info.WorkspaceID, 10)
	fileBase := base + "/file/" + url.PathEscape(commit) + "/"

	view := &pathView{Info: info}
	view.Crumbs = append(view.Crumbs, linkView{Name: shortCommit(commit), Href: fileBase})
	segments := service.SplitPath(info.Path)
	for i := range segments {
		if i == len(segments)-1 && !strings.HasSuffix(info.Path, "/") {
			break
		}
		view.Crumbs = append(view.Crumbs, linkView{
			Name: segments[i],
			Href: fileBase + escapeSegments(segments[:i+1]) + "/",
		})
	}

	if info.Object == nil {
		return view
	}
	switch {
	case info.Object.TreeInfo != nil:
		dir := escapeSegments(segments)
		if dir != "" {
			dir += "/"
		}
		for _, e := range info.Object.TreeInfo.Entries {
			href := fileBase + dir + url.PathEscape(e.Name)
			if e.Kind == gitstore.EntryTree {
				href += "/"
			}
			view.Entries = append(view.Entries, entryView{Name: e.Name, Kind: e.Kind, Href: href})
		}
	case info.Object.FileInfo != nil:
		view.File = &fileView{
			Size:    info.Object.FileInfo.Size,
			RawHref: base + "/raw/" + url.PathEscape(commit) + "/" + escapeSegments(segments),
		}
	case info.Object.SubRepo != nil:
		b := info.Object.SubRepo
		view.SubRepo = &subRepoView{Location: b.Location, Commit: b.Commit, Path: b.Path}
		if target, err := s.workspaces.FindByURL(r.Context(), b.Location); err == nil {
			view.SubRepo.Href = "/workspace/" + strconv.FormatInt(target.ID, 10) + "/file/" + url.PathEscape(b.Commit) + "/" + escapeSegments(service.SplitPath(b.Path))
		}
	}
	return view
}

func (s *Server) pageWorkspace(w http.ResponseWriter, r *http.Request, resource *web.Resource) (*models.Workspace, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil || id <= 0 {
		s.pageError(w, r, *resource, service.ErrWorkspaceNotFound, 0)
		return nil, false
	}
	resource.WorkspaceID = id
	ws, err := s.workspaces.Get(r.Context(), id)
	if err != nil {
		s.pageError(w, r, *resource, err, id)
		return nil, false
	}
	return ws, true
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, page *web.Page, resource web.Resource, content []byte) {
	state, err := web.EncodeState(resource, content)
	if err != nil {
		slog.Error("encode page state", "page", name, "error", err, "request_id", requestIDFromContext(r.Context()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	page.State = state
	if err := s.pages.Render(w, status, name, page); err != nil {
		slog.Error("render page", "page", name, "error", err, "request_id", requestIDFromContext(r.Context()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) pageError(w http.ResponseWriter, r *http.Request, resource web.Resource, err error, workspaceID int64) {
	status, message := resolveErrorStatus(err)
	attrs := []any{
		"workspace_id", workspaceID,
		"commit", r.PathValue("commit"),
		"path", r.PathValue("path"),
		"request_id", requestIDFromContext(r.Context()),
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		slog.Error("page request failed", attrs...)
	} else {
		slog.Info("page request rejected", attrs...)
	}
	s.renderPage(w, r, status, "error", &web.Page{Title: http.StatusText(status), Section: "workspace", Data: message}, resource, nil)
}

func escapeSegments(segments []string) string {
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		escaped[i] = url.PathEscape(seg)
	}
	return strings.Join(escaped, "/")
}

func shortCommit(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}
