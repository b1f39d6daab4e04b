package upload

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"prospect-video-generator/internal/domain"
	"prospect-video-generator/internal/domain/ports/adapter"
	"prospect-video-generator/internal/infra/adapters/remote"
)

// Compile-time check
var _ adapter.AssetUploader = (*HTTPUploader)(nil)

// HTTPUploader streams multipart uploads to the asset service.
type HTTPUploader struct {
	client *remote.Client
	logger *zerolog.Logger
}

func NewHTTPUploader(baseURL, apiKey string, timeout time.Duration, logger *zerolog.Logger) (*HTTPUploader, error) {
	c, err := remote.NewClient(baseURL, apiKey, timeout)
	if err != nil {
		return nil, err
	}
	l := logger.With().Str("component", "HTTPUploader").Logger()
	return &HTTPUploader{client: c, logger: &l}, nil
}

func (u *HTTPUploader) UploadVideo(ctx context.Context, filename string, r io.Reader, role adapter.VideoRole) (*adapter.VideoAsset, error) {
	if role != adapter.VideoRoleMain && role != adapter.VideoRoleSecondary {
		return nil, fmt.Errorf("%w: unknown video role %q", domain.ErrInvalidArgument, role)
	}
	var out adapter.VideoAsset
	fields := map[string]string{"type": string(role)}
	if err := u.post(ctx, "/upload/video", "video", filename, r, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *HTTPUploader) UploadCSV(ctx context.Context, filename string, r io.Reader) (*adapter.CSVAsset, error) {
	var out adapter.CSVAsset
	if err := u.post(ctx, "/upload/csv", "csv", filename, r, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *HTTPUploader) post(ctx context.Context, path, field, filename string, r io.Reader, fields map[string]string, out any) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := func() error {
			for k, v := range fields {
				if err := mw.WriteField(k, v); err != nil {
					return err
				}
			}
			part, err := mw.CreateFormFile(field, filename)
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, r); err != nil {
				return err
			}
			return mw.Close()
		}()
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.client.URL(path), pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Idempotency-Key", uuid.NewString())

	if err := u.client.Do(req, out); err != nil {
		_ = pr.CloseWithError(err)
		u.logger.Warn().Err(err).Str("path", path).Str("file", filename).Msg("upload failed")
		return fmt.Errorf("%w: %s: %v", domain.ErrUpload, filename, err)
	}
	u.logger.Info().Str("path", path).Str("file", filename).Msg("uploaded")
	return nil
}
