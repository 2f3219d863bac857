package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/noah-isme/coursetrack-api/internal/models"
	"github.com/noah-isme/coursetrack-api/internal/service"
)

// writeSummary prints the HTTP-equivalent verdict followed by a table of row
// outcomes. Without verbose only failing rows are listed.
func writeSummary(w io.Writer, result models.ImportResult, verbose bool) {
	status, resp := service.BuildImportResponse(result)

	headline := color.New(color.FgGreen, color.Bold)
	if !resp.Success {
		headline = color.New(color.FgRed, color.Bold)
	}
	headline.Fprintf(w, "%s\n", resp.Message)
	fmt.Fprintf(w, "batch %s  state %s  status %d\n", result.BatchID, result.State, status)

	if len(resp.DuplicateCodes) > 0 {
		color.New(color.FgYellow).Fprintf(w, "duplicate codes: %v\n", resp.DuplicateCodes)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Row", "Status", "Detail"})
	table.SetAutoWrapText(false)
	rows := 0
	for _, o := range result.Outcomes {
		if o.Valid() {
			if !verbose {
				continue
			}
			detail := o.Created.ID
			if o.Created.Code != "" {
				detail = o.Created.Code + " " + detail
			}
			table.Append([]string{strconv.Itoa(o.Row), "ok", detail})
		} else {
			table.Append([]string{strconv.Itoa(o.Row), "error", o.Error})
		}
		rows++
	}
	if len(result.Outcomes) == 0 {
		for _, e := range resp.Errors {
			table.Append([]string{"-", "error", e})
			rows++
		}
	}
	if rows > 0 {
		table.Render()
	}
}
