package adapter

import (
	"context"
	"io"
)

type VideoRole string

const (
	VideoRoleMain      VideoRole = "main"
	VideoRoleSecondary VideoRole = "secondary"
)

type VideoAsset struct {
	ID       string  `json:"videoId"`
	URL      string  `json:"url"`
	Duration float64 `json:"duration"`
	Size     int64   `json:"size"`
}

type CSVAsset struct {
	ID       string              `json:"csvId"`
	Headers  []string            `json:"headers"`
	RowCount int                 `json:"rowCount"`
	Preview  []map[string]string `json:"preview"`
}

// AssetUploader is the port for the external asset upload service.
// Errors wrap domain.ErrUpload.
type AssetUploader interface {
	UploadVideo(ctx context.Context, filename string, r io.Reader, role VideoRole) (*VideoAsset, error)
	UploadCSV(ctx context.Context, filename string, r io.Reader) (*CSVAsset, error)
}
