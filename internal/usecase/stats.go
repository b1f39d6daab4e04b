package usecase

import "prospect-video-generator/internal/domain/model"

// Aggregate partitions jobs by status. It is recomputed on every call.
func Aggregate(jobs []*model.GenerationJob) model.JobStats {
	stats := model.JobStats{Total: len(jobs)}
	for _, j := range jobs {
		if j == nil {
			stats.Total--
			continue
		}
		switch j.Status {
		case model.JobStatusPending:
			stats.Pending++
		case model.JobStatusProcessing:
			stats.Processing++
		case model.JobStatusCompleted:
			stats.Completed++
		case model.JobStatusError:
			stats.Errors++
		default:
			// unknown statuses are not counted anywhere, so drop them from the total
			stats.Total--
		}
	}
	return stats
}

// PhaseLabel renders the human readable phase for a job.
func PhaseLabel(status model.JobStatus, progress int) string {
	switch status {
	case model.JobStatusPending:
		return "Pending"
	case model.JobStatusProcessing:
		switch {
		case progress < model.PhaseCaptureEnd:
			return "Capturing website..."
		case progress < model.PhaseOverlayEnd:
			return "Overlaying video bubble..."
		case progress < model.PhaseConcatenationEnd:
			return "Concatenating videos..."
		default:
			return "Finalizing..."
		}
	case model.JobStatusCompleted:
		return "Completed"
	case model.JobStatusError:
		return "Error"
	}
	return "Unknown"
}
