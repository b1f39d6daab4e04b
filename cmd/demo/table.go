package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"prospect-video-generator/internal/domain/model"
	"prospect-video-generator/internal/usecase"
)

func renderJobs(jobs []*model.GenerationJob) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Prospect", "Company", "Progress", "Phase", "Result"})
	for _, j := range jobs {
		result := j.LandingPageURL
		if j.Status == model.JobStatusError {
			result = j.Error
		}
		tw.AppendRow(table.Row{
			j.RowIndex + 1,
			j.Prospect.FirstName + " " + j.Prospect.LastName,
			j.Prospect.Company,
			strconv.Itoa(j.Progress) + "%",
			usecase.PhaseLabel(j.Status, j.Progress),
			result,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func renderStats(st model.JobStats) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Total", "Pending", "Processing", "Completed", "Errors"})
	tw.AppendRow(table.Row{st.Total, st.Pending, st.Processing, st.Completed, st.Errors})
	return tw.Render()
}
