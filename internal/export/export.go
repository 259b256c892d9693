package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/jimezsa/leadcli/internal/models"
	"github.com/muesli/termenv"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatTSV      Format = "tsv"
)

type WriteOptions struct {
	ColorEnabled bool
	Hyperlinks   bool
	LinkStyle    LinkStyle
}

type LinkStyle string

const (
	LinkStyleShort LinkStyle = "short"
	LinkStyleFull  LinkStyle = "full"
)

// Columns is the CSV/TSV header; downstream sheets depend on this order.
var Columns = []string{
	"BusinessName",
	"Category",
	"Email",
	"Phone",
	"Street",
	"City",
	"State",
	"Zip",
	"Website",
	"Link",
}

func WriteLeads(w io.Writer, leads []models.Lead, format Format, opts WriteOptions) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, leads)
	case FormatCSV:
		return writeCSV(w, leads, ',')
	case FormatTSV:
		return writeCSV(w, leads, '\t')
	case FormatMarkdown:
		return writeMarkdown(w, leads)
	default:
		return writeTable(w, leads, opts)
	}
}

func writeJSON(w io.Writer, leads []models.Lead) error {
	if leads == nil {
		leads = []models.Lead{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(leads)
}

// writeCSV always emits the header, even when appending to an existing file.
func writeCSV(w io.Writer, leads []models.Lead, delim rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = delim
	if err := writer.Write(Columns); err != nil {
		return err
	}
	for _, lead := range leads {
		if err := writer.Write(Row(lead)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeTable(w io.Writer, leads []models.Lead, opts WriteOptions) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(tableHeader(), "\t"))
	output := termenv.NewOutput(w)
	for _, lead := range leads {
		fmt.Fprintln(tw, strings.Join(tableRow(lead, output, opts), "\t"))
	}
	return tw.Flush()
}

func writeMarkdown(w io.Writer, leads []models.Lead) error {
	if len(leads) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}
	for _, lead := range leads {
		linkLine := "  Listing: -"
		if link := safe(lead.Link); link != "" {
			linkLine = fmt.Sprintf("  Listing: [Open listing](<%s>)", link)
		}
		lines := []string{
			fmt.Sprintf("- **%s**", orDash(lead.BusinessName)),
			fmt.Sprintf("  Address: %s", orDash(address(lead))),
			linkLine,
		}
		if category := lead.Category(); category != "" {
			lines = append(lines, fmt.Sprintf("  Category: %s", category))
		}
		if lead.Phone != "" {
			lines = append(lines, fmt.Sprintf("  Phone: %s", safe(lead.Phone)))
		}
		if lead.Website != "" {
			lines = append(lines, fmt.Sprintf("  Website: <%s>", safe(lead.Website)))
		}
		if lead.HasEmail() {
			lines = append(lines, fmt.Sprintf("  Email: %s", safe(lead.Email)))
		}
		for _, line := range lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

// Row renders lead in Columns order.
func Row(lead models.Lead) []string {
	return []string{
		lead.BusinessName,
		lead.Category(),
		lead.Email,
		lead.Phone,
		lead.Street,
		lead.City,
		lead.State,
		lead.Zip,
		lead.Website,
		lead.Link,
	}
}

func address(lead models.Lead) string {
	place := strings.TrimSpace(strings.Join(nonEmpty(lead.City, strings.TrimSpace(lead.State+" "+lead.Zip)), ", "))
	if place == "" {
		place = safe(lead.Locale)
	}
	return strings.Join(nonEmpty(safe(lead.Street), place), ", ")
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value != "" {
			out = append(out, value)
		}
	}
	return out
}

func safe(value string) string {
	return strings.TrimSpace(value)
}

func orDash(value string) string {
	if value = safe(value); value == "" {
		return "-"
	}
	return value
}

func tableHeader() []string {
	return []string{
		"name",
		"phone",
		"city",
		"email",
		"link",
	}
}

func tableRow(lead models.Lead, output *termenv.Output, opts WriteOptions) []string {
	const linkColor = "#87CEEB"

	link := safe(lead.Link)
	displayURL := "-"
	if link != "" {
		displayURL = link
		if opts.LinkStyle == LinkStyleShort && opts.Hyperlinks {
			displayURL = shortURLLabel(link)
		}
		if opts.ColorEnabled {
			displayURL = output.String(displayURL).Foreground(output.Color(linkColor)).String()
		}
		if opts.Hyperlinks {
			displayURL = hyperlink(link, displayURL)
		}
	}
	city := lead.City
	if lead.State != "" {
		city = strings.Join(nonEmpty(lead.City, lead.State), ", ")
	}
	return []string{
		orDash(lead.BusinessName),
		orDash(lead.Phone),
		orDash(city),
		orDash(lead.Email),
		displayURL,
	}
}

func hyperlink(url string, text string) string {
	const esc = "\x1b"
	return esc + "]8;;" + url + esc + "\\" + text + esc + "]8;;" + esc + "\\"
}

func shortURLLabel(raw string) string {
	const maxLen = 60
	label := strings.TrimSpace(raw)
	if parsed, err := url.Parse(raw); err == nil {
		host := strings.TrimPrefix(parsed.Host, "www.")
		if host != "" {
			label = host + parsed.Path
		}
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = raw
	}
	if len(label) > maxLen {
		label = label[:maxLen-3] + "..."
	}
	return label
}
