package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/render"

	service "github.com/okian/perfboard/internal/app"
)

// Multipart field names.
const (
	fieldFile       = "file"
	fieldFiles      = "files"
	fieldKind       = "type"
	fieldUploadedBy = "uploaded_by"
)

// handleUpload handles POST /api/upload/.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !s.parseMultipart(w, r) {
		return
	}
	f, hdr, err := r.FormFile(fieldFile)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, service.MsgNoFile)
		return
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, service.MsgNoFile, err.Error())
		return
	}

	res, err := s.deps.Upload(r.Context(), service.UploadRequest{
		Filename:   hdr.Filename,
		Data:       data,
		Kind:       r.FormValue(fieldKind),
		UploadedBy: r.FormValue(fieldUploadedBy),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, res)
}

// handleUploadBatch handles POST /api/upload/batch/. Every file is reported
// separately, so the response is 200 even when some files failed.
func (s *Server) handleUploadBatch(w http.ResponseWriter, r *http.Request) {
	if !s.parseMultipart(w, r) {
		return
	}
	headers := r.MultipartForm.File[fieldFiles]
	if len(headers) == 0 {
		headers = r.MultipartForm.File[fieldFile]
	}
	if len(headers) == 0 {
		writeError(w, r, http.StatusBadRequest, service.MsgNoFile)
		return
	}

	kind := r.FormValue(fieldKind)
	files := make([]service.UploadRequest, 0, len(headers))
	for _, h := range headers {
		data, err := readPart(h)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, service.MsgNoFile, h.Filename+": "+err.Error())
			return
		}
		files = append(files, service.UploadRequest{Filename: h.Filename, Data: data, Kind: kind})
	}

	res, err := s.deps.UploadBatch(r.Context(), files, r.FormValue(fieldUploadedBy))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, res)
}

func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	if r.ContentLength > s.maxBytes {
		writeError(w, r, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
		return false
	}
	err := r.ParseMultipartForm(multipartMemory)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, r, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
		return false
	}
	writeError(w, r, http.StatusBadRequest, service.MsgNoFile)
	return false
}

func readPart(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}
