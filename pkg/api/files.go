package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/manthysbr/toolchat/internal/core/domain"
)

const maxUploadBytes = 10 << 20

// GET /v1/files?prefix=
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	if s.files == nil {
		writeError(w, http.StatusServiceUnavailable, "file store not available")
		return
	}
	files, err := s.files.ListFiles(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		s.logger.Error("failed to list files", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"files": files,
		"count": len(files),
	})
}

// GET /v1/files/{path...}
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	p, ok := s.filePath(w, r)
	if !ok {
		return
	}
	f, err := s.files.GetFile(r.Context(), p)
	if err != nil {
		s.fileError(w, err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(f.Data))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.Header().Set("Last-Modified", f.ModifiedAt.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	w.Write(f.Data)
}

// PUT /v1/files/{path...}
func (s *Server) handlePutFile(w http.ResponseWriter, r *http.Request) {
	p, ok := s.filePath(w, r)
	if !ok {
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if err := s.files.PutFile(r.Context(), p, data); err != nil {
		s.fileError(w, err)
		return
	}
	s.logger.Info("file stored", "path", p, "size_bytes", len(data))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"path":       p,
		"size_bytes": len(data),
	})
}

// DELETE /v1/files/{path...}
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	p, ok := s.filePath(w, r)
	if !ok {
		return
	}
	if err := s.files.DeleteFile(r.Context(), p); err != nil {
		s.fileError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) filePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	if s.files == nil {
		writeError(w, http.StatusServiceUnavailable, "file store not available")
		return "", false
	}
	p, err := domain.CleanFilePath(r.PathValue("path"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return p, true
}

func (s *Server) fileError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrFileNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Error("file store error", "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}
