// Package docstore uploads supporting documents to a Cloudinary-style raw upload endpoint
// and hands back the durable https reference stored on a leave request.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"leavelite/internal/apperror"
	"leavelite/internal/platform/config"
)

const pdfMIME = "application/pdf"

type Upload struct {
	FileName string
	Data     []byte
}

type Document struct {
	URL              string `json:"url"`
	PublicID         string `json:"publicId"`
	OriginalFilename string `json:"originalFilename,omitempty"`
	Format           string `json:"format,omitempty"`
	Bytes            int64  `json:"bytes"`
}

// UploadConfig is what a browser needs for an unsigned direct upload.
type UploadConfig struct {
	CloudName    string `json:"cloudName"`
	UploadPreset string `json:"uploadPreset"`
	Folder       string `json:"folder"`
	UploadURL    string `json:"uploadUrl"`
	MaxBytes     int64  `json:"maxBytes"`
	Accept       string `json:"accept"`
}

type Store struct {
	cfg      config.DocStoreConfig
	maxBytes int64
	client   *retryablehttp.Client
	logger   *zap.Logger
}

func New(cfg config.DocStoreConfig, maxBytes int64, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("docstore")

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.HTTPClient.Timeout = cfg.Timeout
	client.Logger = retryLogger{logger: logger}

	return &Store{cfg: cfg, maxBytes: maxBytes, client: client, logger: logger}
}

func (s *Store) Enabled() bool {
	return s != nil && s.cfg.Enabled && s.cfg.CloudName != ""
}

func (s *Store) uploadURL() string {
	return fmt.Sprintf("%s/%s/raw/upload", strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.CloudName)
}

func (s *Store) UploadConfig() (UploadConfig, error) {
	if !s.Enabled() {
		return UploadConfig{}, apperror.Dependency(nil, "document storage is not configured")
	}
	return UploadConfig{
		CloudName:    s.cfg.CloudName,
		UploadPreset: s.cfg.UploadPreset,
		Folder:       s.cfg.Folder,
		UploadURL:    s.uploadURL(),
		MaxBytes:     s.maxBytes,
		Accept:       pdfMIME,
	}, nil
}

// Validate enforces the PDF-only and size rules before anything leaves the process.
func (s *Store) Validate(upload Upload) error {
	if len(upload.Data) == 0 {
		return apperror.Validation("file is empty")
	}
	if int64(len(upload.Data)) > s.maxBytes {
		return apperror.Validation(fmt.Sprintf("file must be at most %d bytes", s.maxBytes))
	}
	if !mimetype.Detect(upload.Data).Is(pdfMIME) {
		return apperror.Validation("only PDF documents are accepted")
	}
	return nil
}

type uploadResponse struct {
	SecureURL        string `json:"secure_url"`
	PublicID         string `json:"public_id"`
	OriginalFilename string `json:"original_filename"`
	Format           string `json:"format"`
	Bytes            int64  `json:"bytes"`
	Error            *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (s *Store) Upload(ctx context.Context, upload Upload) (Document, error) {
	if !s.Enabled() {
		return Document{}, apperror.Dependency(nil, "document storage is not configured")
	}
	if err := s.Validate(upload); err != nil {
		return Document{}, err
	}

	body, contentType, err := s.encode(upload)
	if err != nil {
		return Document{}, apperror.Dependency(err, "failed to encode upload")
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.uploadURL(), body)
	if err != nil {
		return Document{}, apperror.Dependency(err, "failed to build upload request")
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return Document{}, apperror.Dependency(err, "document upload failed")
	}
	defer resp.Body.Close()

	var out uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return Document{}, apperror.Dependency(err, "invalid document store response")
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg := fmt.Sprintf("document store returned %d", resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg += ": " + out.Error.Message
		}
		return Document{}, apperror.Dependency(fmt.Errorf("%s", msg), "document upload failed")
	}
	if !strings.HasPrefix(out.SecureURL, "https://") {
		return Document{}, apperror.Dependency(fmt.Errorf("insecure url %q", out.SecureURL), "document upload failed")
	}

	s.logger.Info("document uploaded", zap.String("publicId", out.PublicID), zap.Int64("bytes", out.Bytes))
	return Document{
		URL:              out.SecureURL,
		PublicID:         out.PublicID,
		OriginalFilename: out.OriginalFilename,
		Format:           out.Format,
		Bytes:            out.Bytes,
	}, nil
}

func (s *Store) encode(upload Upload) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("upload_preset", s.cfg.UploadPreset); err != nil {
		return nil, "", err
	}
	if s.cfg.Folder != "" {
		if err := mw.WriteField("folder", s.cfg.Folder); err != nil {
			return nil, "", err
		}
	}
	name := upload.FileName
	if name == "" {
		name = "document.pdf"
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(upload.Data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

// retryLogger adapts zap to retryablehttp.LeveledLogger.
type retryLogger struct {
	logger *zap.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, keysAndValues...)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Warnw(msg, keysAndValues...)
}
