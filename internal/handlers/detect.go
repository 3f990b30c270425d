package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"deepfake-detector/internal/config"
	"deepfake-detector/internal/dto"
	"deepfake-detector/internal/logger"
	"deepfake-detector/internal/services"
	"deepfake-detector/internal/services/ai"
	"deepfake-detector/internal/services/storage"
)

// DetectUploadHandler classifies a single image sent as the multipart file
// "image" or referenced by the form field "image_url".
func DetectUploadHandler(manager *services.Manager, fetcher *storage.Fetcher, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", logger)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)
		if err := r.ParseMultipartForm(cfg.MaxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error(), logger)
			return
		}

		upload, status, err := readSingleUpload(r, fetcher)
		if err != nil {
			logger.Warning("[detect-upload] %v", err)
			writeError(w, status, err.Error(), logger)
			return
		}

		result, err := manager.Detect(r.Context(), upload)
		if err != nil {
			logger.Error("[detect-upload] Failed to process %s: %v", upload.OriginalName, err)
			writeError(w, http.StatusInternalServerError, "internal server error", logger)
			return
		}

		out := result.Outcome
		logger.Info("🔎 [detect-upload] %s -> %s (%.4f)", upload.OriginalName, out.Label, out.Confidence)

		resp := dto.DetectResponse{
			OK:     out.Label != ai.LabelError,
			Label:  string(out.Label),
			Result: resultText(out.Label, out.Confidence, false),
		}
		if result.File.Name != "" {
			resp.PreviewURL = result.File.URL()
		}
		if out.Label != ai.LabelNoFace && out.Label != ai.LabelError {
			resp.Score = services.RoundScore(out.Confidence)
		}
		writeJSON(w, http.StatusOK, resp, logger)
	}
}

// readSingleUpload prefers the file field over the URL field.
func readSingleUpload(r *http.Request, fetcher *storage.Fetcher) (services.Upload, int, error) {
	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		if header.Filename == "" {
			return services.Upload{}, http.StatusBadRequest, errors.New("missing file name")
		}
		data, err := io.ReadAll(file)
		if err != nil {
			return services.Upload{}, http.StatusBadRequest, errors.New("failed to read upload")
		}
		return services.Upload{
			Data:         data,
			Ext:          storage.ExtFromFilename(header.Filename),
			OriginalName: header.Filename,
			Origin:       services.OriginUpload,
		}, http.StatusOK, nil
	}

	imageURL := strings.TrimSpace(r.FormValue("image_url"))
	if imageURL == "" {
		return services.Upload{}, http.StatusBadRequest, errors.New("no image provided")
	}

	data, ext, err := fetcher.Fetch(r.Context(), imageURL)
	if err != nil {
		return services.Upload{}, http.StatusBadRequest, errors.New("image download failed: " + err.Error())
	}
	return services.Upload{
		Data:         data,
		Ext:          ext,
		OriginalName: imageURL,
		Origin:       services.OriginURL,
		Prefix:       "url_",
	}, http.StatusOK, nil
}

// DetectMultiHandler classifies every file of the multipart field "images".
// With cleanup set the files are deleted after classification.
func DetectMultiHandler(manager *services.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", logger)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)
		if err := r.ParseMultipartForm(cfg.MaxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "no images uploaded", logger)
			return
		}

		headers := append(r.MultipartForm.File["images"], r.MultipartForm.File["images[]"]...)
		if len(headers) == 0 {
			writeError(w, http.StatusBadRequest, "no images uploaded", logger)
			return
		}
		cleanup := config.ParseBool(r.FormValue("cleanup"), false)

		results := make([]dto.MultiResult, len(headers))
		var uploads []services.Upload
		var slots []int
		for i, header := range headers {
			upload, err := readPart(header)
			if err != nil {
				results[i] = dto.MultiResult{Filename: header.Filename, Label: string(ai.LabelError), Result: err.Error()}
				continue
			}
			uploads = append(uploads, upload)
			slots = append(slots, i)
		}

		for n, item := range manager.DetectBatch(r.Context(), uploads, cleanup) {
			out := item.Outcome
			res := dto.MultiResult{
				Filename: item.Upload.OriginalName,
				Label:    string(out.Label),
				Score:    services.RoundScore(out.Confidence),
				Result:   resultText(out.Label, out.Confidence, true),
			}
			if item.Err != nil {
				logger.Error("[multi] Failed to process %s: %v", item.Upload.OriginalName, item.Err)
				res.Result = "processing error"
			}
			if !item.Removed && item.File.Name != "" {
				url := item.File.URL()
				res.URL = &url
			}
			results[slots[n]] = res
		}

		summary := dto.MultiSummary{Total: len(results), Counts: make(map[string]int)}
		for _, label := range ai.Labels {
			summary.Counts[string(label)] = 0
		}
		for _, res := range results {
			summary.Counts[res.Label]++
		}

		logger.Info("📦 [multi] %d image(s) classified (cleanup=%t)", len(results), cleanup)
		writeJSON(w, http.StatusOK, dto.MultiResponse{Summary: summary, Results: results}, logger)
	}
}

func readPart(header *multipart.FileHeader) (services.Upload, error) {
	if header.Filename == "" {
		return services.Upload{}, errors.New("missing file name")
	}
	file, err := header.Open()
	if err != nil {
		return services.Upload{}, errors.New("failed to read upload")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		return services.Upload{}, errors.New("empty file")
	}
	return services.Upload{
		Data:         data,
		Ext:          storage.ExtFromFilename(header.Filename),
		OriginalName: header.Filename,
		Origin:       services.OriginMulti,
	}, nil
}
