package server

import (
	"io"
	"net/http"
	"strconv"

	"vault-rag/internal/apperr"
)

// maxUploadBytes bounds a single vault upload.
const maxUploadBytes = 50 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apperr.Validation("malformed multipart form: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperr.Validation("missing file field"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, err)
		return
	}

	doc, err := s.vault.Upload(r.Context(), uid, header.Filename, content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "File uploaded to vault successfully",
		"document_id": doc.ID,
		"filename":    doc.Filename,
		"file_size":   doc.FileSize,
		"processed":   doc.Processed,
	})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	docs, err := s.vault.List(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": docs, "total": len(docs)})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	docID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, apperr.Validation("invalid document id"))
		return
	}
	if err := s.vault.Delete(r.Context(), uid, docID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "File deleted successfully"})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := s.vault.RebuildIndex(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":             "Vectorstore rebuilt successfully",
		"documents_processed": report.DocumentsProcessed,
		"documents_failed":    report.DocumentsFailed,
		"total_chunks":        report.TotalFragments,
		"failed_files":        report.FailedFiles,
	})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	turns, err := s.store.ChatHistory(r.Context(), uid, skip, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": turns, "total": len(turns)})
}
