package http

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/classlight/classlight-lms/internal/storage"
)

// MountAssets serves exercise media: audio prompts for listening and
// dictation tasks, pictures for image-choice. uploadGuard protects the
// write route; reads are open to any authenticated caller.
func MountAssets(r chi.Router, bs storage.BlobStore, uploadGuard func(http.Handler) http.Handler) {
	// POST /assets/exercises/{exerciseID}  multipart file= + name=
	r.With(uploadGuard).Post("/exercises/{exerciseID}", func(w http.ResponseWriter, r *http.Request) {
		exerciseID := chi.URLParam(r, "exerciseID")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()

		name := r.FormValue("name")
		if name == "" {
			name = hdr.Filename
		}
		name = path.Base(name)
		if name == "" || name == "." {
			http.Error(w, "name required", http.StatusBadRequest)
			return
		}

		key, err := bs.Put("exercises/"+exerciseID+"/"+name, f)
		if err != nil {
			http.Error(w, "store error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"key": key})
	})

	// GET /assets/*  -> the blob at whatever follows /assets/
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		rc, err := bs.Get(key)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer rc.Close()

		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	})
}
