package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"sc-provisioner/internal/entities"
)

// maskConnectionString masks sensitive parts of database connection string for display
func maskConnectionString(connStr string) string {
	if len(connStr) > 20 {
		return connStr[:10] + "..." + connStr[len(connStr)-10:]
	}
	return "***"
}

// printRecords writes records as an aligned code/cost/type table.
func printRecords(w io.Writer, records []entities.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tCOST\tTYPE")
	for _, r := range records {
		kind := r.Type
		if kind == "" {
			kind = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Code, r.Cost.StringFixed(2), kind)
	}
	return tw.Flush()
}
