package rest

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mdreader/mdreaderd/config"
	"github.com/mdreader/mdreaderd/domain/model"
	"github.com/mdreader/mdreaderd/domain/port/inbound"
)

// Handler serves the REST API consumed by the local UI.
type Handler struct {
	workspaceService inbound.WorkspaceService
	fileService      inbound.FileService
	watcherService   inbound.WatcherService
	transferService  inbound.TransferService
	authService      inbound.AuthService
	cfg              *config.Config
	logger           model.Logger
}

func NewHandler(
	workspaceService inbound.WorkspaceService,
	fileService inbound.FileService,
	watcherService inbound.WatcherService,
	transferService inbound.TransferService,
	authService inbound.AuthService,
	cfg *config.Config,
	logger model.Logger,
) *Handler {
	return &Handler{
		workspaceService: workspaceService,
		fileService:      fileService,
		watcherService:   watcherService,
		transferService:  transferService,
		authService:      authService,
		cfg:              cfg,
		logger:           logger,
	}
}

// SetupRoutes configures the REST API routes
func (h *Handler) SetupRoutes(router *mux.Router) {
	// Session token
	router.HandleFunc("/api/auth/token", h.issueToken).Methods("POST")

	// Workspace routes
	router.HandleFunc("/api/workspace", h.getWorkspace).Methods("GET")
	router.HandleFunc("/api/workspace", h.selectWorkspace).Methods("POST")
	router.HandleFunc("/api/workspace", h.clearWorkspace).Methods("DELETE")
	router.HandleFunc("/api/workspace/default-location", h.defaultWorkspaceLocation).Methods("GET")
	router.HandleFunc("/api/workspace/default-folders", h.ensureDefaultFolders).Methods("POST")
	router.HandleFunc("/api/workspace/config", h.getWorkspaceConfig).Methods("GET")

	// File routes
	router.HandleFunc("/api/files", h.listFiles).Methods("GET")
	router.HandleFunc("/api/files", h.createFile).Methods("POST")
	router.HandleFunc("/api/files", h.deleteFile).Methods("DELETE")
	router.HandleFunc("/api/files/exists", h.fileExists).Methods("GET")
	router.HandleFunc("/api/files/metadata", h.getMetadata).Methods("GET")
	router.HandleFunc("/api/files/rename", h.renameFile).Methods("POST")
	router.HandleFunc("/api/files/copy", h.copyFile).Methods("POST")
	router.HandleFunc("/api/files/move", h.moveFile).Methods("POST")

	// Document content routes
	router.HandleFunc("/api/documents", h.loadDocument).Methods("GET")
	router.HandleFunc("/api/documents", h.saveDocument).Methods("PUT")

	// Directory routes
	router.HandleFunc("/api/directories", h.createDirectory).Methods("POST")
	router.HandleFunc("/api/directories", h.deleteDirectory).Methods("DELETE")
	router.HandleFunc("/api/directories/rename", h.renameDirectory).Methods("POST")

	// Import/export routes
	router.HandleFunc("/api/import/file", h.importFile).Methods("POST")
	router.HandleFunc("/api/import/folder", h.importFolder).Methods("POST")
	router.HandleFunc("/api/export", h.exportDocument).Methods("POST")

	// Watcher routes
	router.HandleFunc("/api/watchers", h.listWatchers).Methods("GET")
	router.HandleFunc("/api/watchers", h.startWatching).Methods("POST")
	router.HandleFunc("/api/watchers", h.stopWatching).Methods("DELETE")
	router.HandleFunc("/api/watchers/all", h.stopAllWatchers).Methods("DELETE")
	router.HandleFunc("/api/watchers/stats", h.watcherStats).Methods("GET")

	// Settings routes
	router.HandleFunc("/api/settings", h.getSettings).Methods("GET")
	router.HandleFunc("/api/settings/logging", h.updateLogLevel).Methods("PUT")

	// Health route
	router.HandleFunc("/health", h.healthCheck).Methods("GET")
}

// respondError maps domain errors to HTTP status codes. Path validation
// failures deliberately stay vague for the caller; the details are in the
// server log.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrOutsideWorkspace), errors.Is(err, model.ErrProtectedPath):
		h.logger.Warn("access denied", "error", err)
		http.Error(w, "access denied", http.StatusForbidden)
	case errors.Is(err, model.ErrInvalidPathPattern):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrResolutionFailed), errors.Is(err, model.ErrWatchNotFound), errors.Is(err, fs.ErrNotExist):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, model.ErrInvalidWorkspaceRoot), errors.Is(err, model.ErrNoWorkspace), errors.Is(err, model.ErrFileExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, model.ErrWorkspaceConfigNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.logger.Error("request failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func requireQuery(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value := r.URL.Query().Get(name)
	if value == "" {
		http.Error(w, "missing query parameter: "+name, http.StatusBadRequest)
		return "", false
	}
	return value, true
}

// healthCheck reports service liveness
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientName string `json:"clientName"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ClientName == "" {
		req.ClientName = "mdreader-ui"
	}

	token, err := h.authService.IssueToken(req.ClientName)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"token":             token,
		"expirationMinutes": h.cfg.HTTP.JWT.ExpirationMinutes,
	})
}

func (h *Handler) getWorkspace(w http.ResponseWriter, r *http.Request) {
	workspace, err := h.workspaceService.GetWorkspace()
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"workspacePath": workspace})
}

func (h *Handler) selectWorkspace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	workspace, err := h.workspaceService.SelectWorkspace(r.Context(), req.Path)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"workspacePath": workspace})
}

func (h *Handler) clearWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := h.workspaceService.ClearWorkspace(); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) defaultWorkspaceLocation(w http.ResponseWriter, r *http.Request) {
	location, err := h.workspaceService.DefaultWorkspaceLocation()
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"path": location})
}

func (h *Handler) ensureDefaultFolders(w http.ResponseWriter, r *http.Request) {
	created, err := h.workspaceService.EnsureDefaultFolders(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"created": created})
}

func (h *Handler) getWorkspaceConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.workspaceService.LoadConfig()
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, cfg)
}

func (h *Handler) listFiles(w http.ResponseWriter, r *http.Request) {
	dir, ok := requireQuery(w, r, "dir")
	if !ok {
		return
	}

	files, err := h.fileService.ListFiles(r.Context(), dir)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (h *Handler) createFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DirPath  string `json:"dirPath"`
		FileName string `json:"fileName"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	path, err := h.fileService.CreateFile(r.Context(), req.DirPath, req.FileName)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]string{"path": path})
}

func (h *Handler) deleteFile(w http.ResponseWriter, r *http.Request) {
	path, ok := requireQuery(w, r, "path")
	if !ok {
		return
	}

	if err := h.fileService.DeleteFile(r.Context(), path); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fileExists(w http.ResponseWriter, r *http.Request) {
	path, ok := requireQuery(w, r, "path")
	if !ok {
		return
	}

	exists, err := h.fileService.FileExists(r.Context(), path)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (h *Handler) getMetadata(w http.ResponseWriter, r *http.Request) {
	path, ok := requireQuery(w, r, "path")
	if !ok {
		return
	}

	meta, err := h.fileService.GetMetadata(r.Context(), path)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, meta)
}

func (h *Handler) renameFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPath string `json:"oldPath"`
		NewPath string `json:"newPath"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.fileService.RenameFile(r.Context(), req.OldPath, req.NewPath); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) copyFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourcePath string `json:"sourcePath"`
		DestPath   string `json:"destPath"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.fileService.CopyFile(r.Context(), req.SourcePath, req.DestPath); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) moveFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourcePath string `json:"sourcePath"`
		DestPath   string `json:"destPath"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.fileService.MoveFile(r.Context(), req.SourcePath, req.DestPath); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) loadDocument(w http.ResponseWriter, r *http.Request) {
	path, ok := requireQuery(w, r, "path")
	if !ok {
		return
	}

	content, err := h.fileService.LoadDocument(r.Context(), path)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"path": path, "content": content})
}

func (h *Handler) saveDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	saved, err := h.fileService.SaveDocument(r.Context(), req.Path, req.Content)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"path": saved})
}

func (h *Handler) createDirectory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	path, err := h.fileService.CreateDirectory(r.Context(), req.Path)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]string{"path": path})
}

func (h *Handler) deleteDirectory(w http.ResponseWriter, r *http.Request) {
	path, ok := requireQuery(w, r, "path")
	if !ok {
		return
	}
	recursive, _ := strconv.ParseBool(r.URL.Query().Get("recursive"))

	if err := h.fileService.DeleteDirectory(r.Context(), path, recursive); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) renameDirectory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPath string `json:"oldPath"`
		NewPath string `json:"newPath"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.fileService.RenameDirectory(r.Context(), req.OldPath, req.NewPath); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) importFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourcePath string `json:"sourcePath"`
		DestFolder string `json:"destFolder"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	imported, err := h.transferService.ImportFile(r.Context(), req.SourcePath, req.DestFolder)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"path": imported})
}

func (h *Handler) importFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourcePath string `json:"sourcePath"`
		DestFolder string `json:"destFolder"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	imported, err := h.transferService.ImportFolder(r.Context(), req.SourcePath, req.DestFolder)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"files": imported})
}

func (h *Handler) exportDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentPath string `json:"documentPath"`
		DestPath     string `json:"destPath"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.transferService.ExportDocument(r.Context(), req.DocumentPath, req.DestPath); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listWatchers(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]any{"watchers": h.watcherService.ListWatchers()})
}

func (h *Handler) startWatching(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.watcherService.StartWatching(r.Context(), req.Path); err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"path": req.Path})
}

func (h *Handler) stopWatching(w http.ResponseWriter, r *http.Request) {
	path, ok := requireQuery(w, r, "path")
	if !ok {
		return
	}

	removed, err := h.watcherService.StopWatching(path)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (h *Handler) stopAllWatchers(w http.ResponseWriter, r *http.Request) {
	count := h.watcherService.StopAll()
	h.respondJSON(w, http.StatusOK, map[string]int{"stopped": count})
}

func (h *Handler) watcherStats(w http.ResponseWriter, r *http.Request) {
	path, ok := requireQuery(w, r, "path")
	if !ok {
		return
	}

	stats := h.watcherService.WatcherStats(path)
	if stats == nil {
		h.respondError(w, model.ErrWatchNotFound)
		return
	}
	h.respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.cfg.ToPublic())
}

func (h *Handler) updateLogLevel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Level string `json:"level"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	switch req.Level {
	case "debug", "info", "warn", "error":
	default:
		http.Error(w, "invalid log level: "+req.Level, http.StatusBadRequest)
		return
	}

	h.logger.UpdateLevel(req.Level)
	h.respondJSON(w, http.StatusOK, map[string]string{"level": req.Level})
}
