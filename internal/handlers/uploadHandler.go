package handlers

import (
	"net/http"

	"qbank/internal/service"
	httputil "qbank/internal/utility/http"
)

type uploadResponse struct {
	Uploaded map[string]string      `json:"uploaded"`
	Failed   []service.ImageFailure `json:"failed,omitempty"`
}

// UploadImages hosts the images posted under "images" and returns a filename
// to URL map that clients can send back as refImages on a bulk create.
func UploadImages(importer Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !parseMultipart(w, r) {
			return
		}
		images := formAssets(r, "images")
		if len(images) == 0 {
			httputil.RespondError(w, http.StatusBadRequest, "No images uploaded", nil)
			return
		}
		uploaded, failed := importer.UploadImages(r.Context(), images)
		code := http.StatusCreated
		if len(uploaded) == 0 {
			code = http.StatusBadGateway
		}
		httputil.Respond(w, &httputil.Result{
			Success: len(uploaded) > 0,
			Code:    code,
			Message: "Images processed",
			Data:    uploadResponse{Uploaded: uploaded, Failed: failed},
		})
	}
}
