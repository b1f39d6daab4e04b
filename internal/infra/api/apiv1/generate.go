package apiv1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"prospect-video-generator/internal/domain"
	"prospect-video-generator/internal/domain/model"
	"prospect-video-generator/internal/infra/logging"
	"prospect-video-generator/internal/infra/metrics"
	"prospect-video-generator/internal/usecase"
)

// GenerateRequest accepts rows from a previous CSV upload (csvId), inline CSV
// text or pre-split rows, in that order of precedence. A nil mapping is
// auto-detected from the headers.
type GenerateRequest struct {
	MainVideoID      string               `json:"mainVideoId"`
	SecondaryVideoID string               `json:"secondaryVideoId,omitempty"`
	CSVID            string               `json:"csvId,omitempty"`
	CSV              string               `json:"csv,omitempty"`
	Rows             []map[string]string  `json:"rows,omitempty"`
	Mapping          *model.MappingConfig `json:"mapping,omitempty"`
}

type GenerateResponse struct {
	BatchID       string              `json:"batchId"`
	JobIDs        []string            `json:"jobIds"`
	EstimatedTime int64               `json:"estimatedTime"` // milliseconds
	HasSecondary  bool                `json:"hasSecondary"`
	Mapping       model.MappingConfig `json:"mapping"`
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidArgument))
		return
	}

	data, err := s.resolveRows(req)
	if err != nil {
		writeError(w, err)
		return
	}

	mapping := usecase.AutoDetectMapping(data.Headers)
	if req.Mapping != nil {
		mapping = *req.Mapping
	}

	batch, err := s.gen.StartBatch(ctx, usecase.BatchRequest{
		Headers:           data.Headers,
		Rows:              data.Rows,
		Mapping:           mapping,
		MainVideoRef:      req.MainVideoID,
		SecondaryVideoRef: req.SecondaryVideoID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.IncBatch()

	l := logging.With(logging.WithBatchID(ctx, batch.ID), s.log)
	l.Info().Int("jobs", len(batch.Jobs)).Msg("generation accepted")

	writeData(w, http.StatusAccepted, GenerateResponse{
		BatchID:       batch.ID,
		JobIDs:        batch.JobIDs(),
		EstimatedTime: batch.EstimatedTime.Milliseconds(),
		HasSecondary:  batch.HasSecondary,
		Mapping:       mapping,
	})
}

func (s *Server) resolveRows(req GenerateRequest) (*model.CSVData, error) {
	switch {
	case req.CSVID != "":
		data, ok := s.csvs.Get(req.CSVID)
		if !ok {
			return nil, fmt.Errorf("%w: csv %s", domain.ErrNotFound, req.CSVID)
		}
		return data, nil
	case req.CSV != "":
		return usecase.ParseCSV(req.CSV)
	case len(req.Rows) > 0:
		return &model.CSVData{Headers: headersOf(req.Rows), Rows: req.Rows}, nil
	default:
		return nil, fmt.Errorf("%w: one of csvId, csv or rows is required", domain.ErrInvalidArgument)
	}
}

// headersOf returns the union of row keys, sorted.
func headersOf(rows []map[string]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, row := range rows {
		for k := range row {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}
