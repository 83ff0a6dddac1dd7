package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/lukman83/listing-miner/internal/models"
)

// printListingsTable prints listings as aligned columns.
func printListingsTable(w io.Writer, listings []models.Listing) {
	if len(listings) == 0 {
		fmt.Fprintln(w, "No listings.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tDELIVERY\tSTOCK\tCATEGORY\t")
	for _, l := range listings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t\n",
			l.ID, truncate(l.Name, 48), formatPrice(l.Cost), formatPrice(l.DeliveryCost), l.Stock, l.CategoryID)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d listings\n", len(listings))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatPrice formats an amount as "1 234,56 zł".
func formatPrice(amount float64) string {
	s := fmt.Sprintf("%.2f", amount)
	whole, frac, _ := strings.Cut(s, ".")
	neg := strings.HasPrefix(whole, "-")
	whole = strings.TrimPrefix(whole, "-")

	var parts []string
	for len(whole) > 3 {
		parts = append([]string{whole[len(whole)-3:]}, parts...)
		whole = whole[:len(whole)-3]
	}
	parts = append([]string{whole}, parts...)

	out := strings.Join(parts, " ") + "," + frac + " zł"
	if neg {
		out = "-" + out
	}
	return out
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
