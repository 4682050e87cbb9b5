package main

import (
	"context"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"git.srvlab.io/whiskey/mapdrive/pkg/probe"
	"git.srvlab.io/whiskey/mapdrive/pkg/utils"
)

func (a *app) list(ctx context.Context, prober *probe.Prober, timeout time.Duration) int {
	statuses, err := prober.ListMapped(ctx, timeout)
	if err != nil {
		return a.fail(utils.NewInternalError(err, "failed to list drives"))
	}

	printDriveTable(a.stdout, statuses)
	return exitOK
}

// printDriveTable writes one row per drive as a borderless table.
func printDriveTable(w io.Writer, statuses []probe.DriveStatus) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Drive", "Share", "Status"})

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, s := range statuses {
		table.Append([]string{s.Drive, s.RemoteName, driveState(s)})
	}
	table.Render()
}

func driveState(s probe.DriveStatus) string {
	switch {
	case s.Online:
		return "online"
	case s.Mapped:
		return "offline"
	default:
		return "unavailable"
	}
}
