package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"qbank/internal/service"
	"qbank/internal/utility"
	httputil "qbank/internal/utility/http"
)

const (
	maxJSONBody      = 16 << 20
	maxMultipartBody = 64 << 20
	multipartMemory  = 32 << 20
)

// writeServiceError maps service error kinds onto HTTP statuses. Anything
// unclassified is a 500 whose detail is logged only.
func writeServiceError(w http.ResponseWriter, err error) {
	var e *service.Error
	if errors.As(err, &e) {
		switch e.Kind {
		case service.KindValidation:
			httputil.RespondError(w, http.StatusBadRequest, e.Message, nil)
			return
		case service.KindNotFound:
			httputil.RespondError(w, http.StatusNotFound, e.Message, nil)
			return
		case service.KindConflict:
			httputil.RespondError(w, http.StatusConflict, e.Message, e.Err)
			return
		}
	}
	httputil.RespondError(w, http.StatusInternalServerError, "Internal Server Error", err)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		return nil, err
	}
	return body, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := readBody(w, r)
	if err == nil {
		err = json.Unmarshal(body, v)
	}
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return false
	}
	return true
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid multipart form", nil)
		return false
	}
	return true
}

// formAssets returns the files posted under field as uploadable assets.
func formAssets(r *http.Request, field string) []utility.Asset {
	if r.MultipartForm == nil {
		return nil
	}
	headers := r.MultipartForm.File[field]
	assets := make([]utility.Asset, 0, len(headers))
	for _, fh := range headers {
		assets = append(assets, utility.AssetFromFileHeader(fh))
	}
	return assets
}

// formFiles reads every file posted under field into memory.
func formFiles(r *http.Request, field string) ([][]byte, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var files [][]byte
	for _, fh := range r.MultipartForm.File[field] {
		data, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fh.Filename, err)
		}
		files = append(files, data)
	}
	return files, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
