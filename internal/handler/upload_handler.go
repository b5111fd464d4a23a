package handler

import (
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/atelie/catalog/internal/middleware"
	"github.com/atelie/catalog/internal/model"
)

const (
	// uploadFormField は画像を受け取るmultipartのフィールド名。
	uploadFormField = "file"
	// defaultImageExt はContent-Typeから拡張子を決められない場合の既定値。
	defaultImageExt = "png"
	// DefaultUploadMaxBytes はアップロードサイズ上限の既定値。
	DefaultUploadMaxBytes int64 = 10 << 20
)

// UploadHandler は商品画像をdata URIに変換するHTTPハンドラー。
// 画像はストアに保存せず、商品のimagesに埋め込む前提で返すだけ。
type UploadHandler struct {
	maxBytes int64
}

// NewUploadHandler はUploadHandlerを生成する。maxBytesが0以下の場合は既定値を使う。
func NewUploadHandler(maxBytes int64) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultUploadMaxBytes
	}
	return &UploadHandler{maxBytes: maxBytes}
}

type uploadImageResponse struct {
	Image string `json:"image"`
}

// UploadImage はmultipartの画像をbase64のdata URIにして返す。
// POST /upload-image
func (h *UploadHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.WriteErrorResponse(w, http.StatusRequestEntityTooLarge,
				model.NewValidationError("file is too large"))
			return
		}
		handleServiceError(w, model.NewValidationError("file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("failed to read uploaded file", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	ext := imageExtension(header.Header.Get("Content-Type"), data)
	writeJSON(w, http.StatusOK, uploadImageResponse{
		Image: "data:image/" + ext + ";base64," + base64.StdEncoding.EncodeToString(data),
	})
}

// imageExtension はContent-Typeのサブタイプを拡張子として返す。
// Content-Typeが無いかapplication/octet-streamの場合は内容から判定し、
// それでも画像と分からなければpngとする。
func imageExtension(contentType string, data []byte) string {
	mediaType := parseMediaType(contentType)
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = ""
		if len(data) > 0 {
			if detected := parseMediaType(mimetype.Detect(data).String()); strings.HasPrefix(detected, "image/") {
				mediaType = detected
			}
		}
	}
	if mediaType == "" {
		return defaultImageExt
	}

	ext := mediaType[strings.LastIndex(mediaType, "/")+1:]
	if ext == "" {
		return defaultImageExt
	}
	return ext
}

func parseMediaType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(contentType)
	}
	return mediaType
}
