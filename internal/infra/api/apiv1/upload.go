package apiv1

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"prospect-video-generator/internal/domain"
	"prospect-video-generator/internal/domain/model"
	"prospect-video-generator/internal/domain/ports/adapter"
	"prospect-video-generator/internal/usecase"
)

const multipartMemory = 32 << 20

// CSVUploadResponse is the asset service answer plus a suggested mapping.
type CSVUploadResponse struct {
	adapter.CSVAsset
	Mapping         model.MappingConfig `json:"mapping"`
	MappingComplete bool                `json:"mappingComplete"`
}

func (s *Server) uploadVideo(w http.ResponseWriter, r *http.Request) {
	if s.uploader == nil {
		writeError(w, fmt.Errorf("%w: upload service not configured", domain.ErrService))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err))
		return
	}
	role := adapter.VideoRole(r.FormValue("type"))
	if role == "" {
		role = adapter.VideoRoleMain
	}
	f, hdr, err := r.FormFile("video")
	if err != nil {
		writeError(w, fmt.Errorf("%w: field video is required", domain.ErrInvalidArgument))
		return
	}
	defer f.Close()

	asset, err := s.uploader.UploadVideo(r.Context(), hdr.Filename, f, role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, asset)
}

func (s *Server) uploadCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err))
		return
	}
	f, hdr, err := r.FormFile("csv")
	if err != nil {
		writeError(w, fmt.Errorf("%w: field csv is required", domain.ErrInvalidArgument))
		return
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err))
		return
	}
	data, err := usecase.ParseCSV(string(raw))
	if err != nil {
		writeError(w, err)
		return
	}

	asset := adapter.CSVAsset{ID: uuid.NewString()}
	if s.uploader != nil {
		remote, err := s.uploader.UploadCSV(r.Context(), hdr.Filename, bytes.NewReader(raw))
		if err != nil {
			writeError(w, err)
			return
		}
		if remote.ID == "" {
			writeError(w, fmt.Errorf("%w: asset service returned no csv id", domain.ErrUpload))
			return
		}
		asset.ID = remote.ID
	}
	asset.Headers = data.Headers
	asset.RowCount = len(data.Rows)
	asset.Preview = usecase.PreviewRows(data, usecase.DefaultPreviewRows)
	s.csvs.Put(asset.ID, data)

	mapping := usecase.AutoDetectMapping(data.Headers)
	writeData(w, http.StatusCreated, CSVUploadResponse{
		CSVAsset:        asset,
		Mapping:         mapping,
		MappingComplete: mapping.Complete(),
	})
}

// ParseResponse is returned by /csv/parse.
type ParseResponse struct {
	Headers         []string            `json:"headers"`
	Rows            []map[string]string `json:"rows"`
	RowCount        int                 `json:"rowCount"`
	Preview         []map[string]string `json:"preview"`
	Mapping         model.MappingConfig `json:"mapping"`
	MappingComplete bool                `json:"mappingComplete"`
}

func (s *Server) parseCSV(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSON(w, http.StatusRequestEntityTooLarge, Response{Success: false, Error: "csv too large"})
			return
		}
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err))
		return
	}
	data, err := usecase.ParseCSV(string(raw))
	if err != nil {
		writeError(w, err)
		return
	}
	mapping := usecase.AutoDetectMapping(data.Headers)
	writeData(w, http.StatusOK, ParseResponse{
		Headers:         data.Headers,
		Rows:            data.Rows,
		RowCount:        len(data.Rows),
		Preview:         usecase.PreviewRows(data, usecase.DefaultPreviewRows),
		Mapping:         mapping,
		MappingComplete: mapping.Complete(),
	})
}
