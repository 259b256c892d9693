package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jimezsa/leadcli/internal/config"
	"github.com/jimezsa/leadcli/internal/export"
	"github.com/jimezsa/leadcli/internal/models"
	"github.com/jimezsa/leadcli/internal/mxcheck"
	"github.com/jimezsa/leadcli/internal/network"
	"github.com/jimezsa/leadcli/internal/scraper"
	"github.com/jimezsa/leadcli/internal/seen"
	"github.com/jimezsa/leadcli/internal/storage"
	"github.com/muesli/termenv"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

type SearchCmd struct {
	Keywords  []string `name:"keyword" short:"k" help:"Search keyword; repeatable or comma-separated."`
	Locations []string `name:"location" short:"l" sep:"none" help:"Search location such as \"Chicago, IL\"; repeatable."`
	QueryFile string   `help:"Path to JSON file with {\"keywords\": [...], \"locations\": [...]}."`

	Site            string        `help:"Directory to crawl." default:"yellowpages"`
	BaseURL         string        `name:"base-url" help:"Override the directory base URL."`
	Workers         int           `help:"Maximum concurrent page tasks per query (0: config or unlimited)."`
	Delay           time.Duration `help:"Pause between page dispatches (0: config default)."`
	NoDelay         bool          `help:"Dispatch every page immediately."`
	Timeout         time.Duration `help:"Per-request timeout (0: config default)."`
	IncludeLastPage bool          `help:"Also crawl the final result page."`
	SkipEmails      bool          `help:"Do not visit business websites."`
	EmailWorkers    int           `name:"email-workers" help:"Maximum concurrent website fetches across all pages (0: config or unlimited)."`
	VerifyMX        bool          `name:"verify-mx" help:"Drop addresses whose domain has no MX record."`

	Format      string `help:"Output format: csv, tsv, json, md, table." enum:",csv,tsv,json,md,table" default:""`
	Links       string `help:"Table link display: short or full." enum:"short,full" default:"full"`
	Output      string `name:"output" short:"o" help:"Write output to a file. CSV and TSV files are appended to."`
	PostgresDSN string `name:"postgres-dsn" help:"Also store leads in this Postgres database."`
	Proxies     string `help:"Comma-separated proxy URLs." env:"LEADCLI_PROXIES"`

	Seen       string `help:"Path to lead history JSON file."`
	NewOnly    bool   `help:"Output only leads missing from the history (requires --seen)."`
	NewOut     string `help:"Write unseen leads JSON to a file (requires --seen)."`
	SeenUpdate bool   `help:"Merge unseen leads into the --seen history after the crawl (requires --seen)."`
}

const maxQueries = 25

func (s *SearchCmd) Run(ctx *Context) error {
	if err := s.validate(); err != nil {
		return err
	}
	queries, err := resolveQueries(s.Keywords, s.Locations, s.QueryFile, ctx.Config.DefaultLocation)
	if err != nil {
		return err
	}

	crawler, err := s.buildCrawler(ctx)
	if err != nil {
		return err
	}

	stopIndicator := startSearchIndicator(ctx)
	leads := crawlQueries(context.Background(), crawler, queries)
	if stopIndicator != nil {
		stopIndicator()
	}
	sortLeadsByName(leads)
	if len(leads) == 0 && ctx.UI != nil {
		ctx.UI.Warnf("No leads found for %d queries.", len(queries))
	}

	return s.emit(ctx, leads)
}

func (s *SearchCmd) validate() error {
	hasSeen := strings.TrimSpace(s.Seen) != ""
	switch {
	case s.NewOnly && !hasSeen:
		return fmt.Errorf("--new-only requires --seen")
	case strings.TrimSpace(s.NewOut) != "" && !hasSeen:
		return fmt.Errorf("--new-out requires --seen")
	case s.SeenUpdate && !hasSeen:
		return fmt.Errorf("--seen-update requires --seen")
	}

	if hasSeen && pathsEqual(s.Output, s.Seen) {
		return fmt.Errorf("--output path must differ from --seen")
	}
	if pathsEqual(s.NewOut, s.Output) {
		return fmt.Errorf("--new-out path must differ from --output")
	}
	if pathsEqual(s.NewOut, s.Seen) {
		return fmt.Errorf("--new-out path must differ from --seen")
	}
	return nil
}

// crawlOptions layers flags over the config file values.
func (s *SearchCmd) crawlOptions(cfg config.Config) models.CrawlOptions {
	opts := cfg.CrawlOptions()
	if s.BaseURL != "" {
		opts.BaseURL = s.BaseURL
	}
	if s.Workers > 0 {
		opts.Workers = s.Workers
	}
	if s.EmailWorkers > 0 {
		opts.EmailConcurrency = s.EmailWorkers
	}
	if s.Timeout > 0 {
		opts.Timeout = s.Timeout
	}
	switch {
	case s.NoDelay:
		opts.DispatchDelay = 0
	case s.Delay > 0:
		opts.DispatchDelay = s.Delay
	}
	opts.IncludeLastPage = s.IncludeLastPage
	return opts
}

func (s *SearchCmd) buildCrawler(ctx *Context) (*scraper.Crawler, error) {
	opts := s.crawlOptions(ctx.Config)

	proxies, err := config.LoadProxies(s.Proxies)
	if err != nil {
		return nil, err
	}
	var rotator *network.Rotator
	if len(proxies) > 0 {
		rotator, err = network.NewRotator(proxies, 10*time.Minute)
		if err != nil {
			return nil, err
		}
		ctx.Logger.Info().Int("proxies", rotator.Len()).Msg("proxy rotation enabled")
	}

	client, err := network.NewClient(rotator, network.Options{Timeout: opts.Timeout, Logger: ctx.Logger})
	if err != nil {
		return nil, err
	}
	directory, err := scraper.Lookup(scraper.Registry(client, opts.BaseURL), s.Site)
	if err != nil {
		return nil, err
	}

	var emails scraper.EmailFinder
	if !s.SkipEmails {
		resolverOpts := scraper.EmailResolverOptions{Concurrency: opts.EmailConcurrency, Logger: ctx.Logger}
		if s.VerifyMX || ctx.Config.VerifyMX {
			resolverOpts.Verifier = mxcheck.New(mxcheck.Options{Logger: ctx.Logger})
		}
		emails = scraper.NewEmailResolver(client, resolverOpts)
	}

	return scraper.NewCrawler(directory, emails, opts, ctx.Logger), nil
}

// crawlQueries runs queries one after another; leads are concatenated
// without deduplication.
func crawlQueries(ctx context.Context, crawler *scraper.Crawler, queries []models.SearchQuery) []models.Lead {
	var leads []models.Lead
	for _, query := range queries {
		leads = append(leads, crawler.Crawl(ctx, query)...)
	}
	return leads
}

func (s *SearchCmd) emit(ctx *Context, leads []models.Lead) error {
	var unseen []models.Lead
	if strings.TrimSpace(s.Seen) != "" {
		history, err := seen.ReadLeadsAllowMissing(s.Seen)
		if err != nil {
			return fmt.Errorf("read --seen: %w", err)
		}
		unseen, _ = seen.Diff(leads, history)
	}

	outputLeads := leads
	if s.NewOnly {
		outputLeads = unseen
	}

	if strings.TrimSpace(s.NewOut) != "" {
		if err := seen.WriteLeads(s.NewOut, unseen); err != nil {
			return fmt.Errorf("write --new-out: %w", err)
		}
	}

	format, err := resolveFormat(ctx, s.Format, s.Output)
	if err != nil {
		return err
	}
	if err := s.writeOutput(ctx, outputLeads, format); err != nil {
		return err
	}

	if dsn := firstNonEmpty(s.PostgresDSN, ctx.Config.PostgresDSN); dsn != "" {
		if err := storeLeads(ctx, dsn, outputLeads); err != nil {
			return err
		}
	}

	if s.SeenUpdate {
		if err := updateSeenHistory(s.Seen, unseen); err != nil {
			return err
		}
	}

	printSearchSummary(ctx, outputLeads)
	return nil
}

func (s *SearchCmd) writeOutput(ctx *Context, leads []models.Lead, format export.Format) error {
	writer := ctx.Out
	if s.Output != "" {
		file, err := openOutput(s.Output, format)
		if err != nil {
			return err
		}
		defer file.Close()
		writer = file
	}

	colorEnabled := ctx.UI != nil && ctx.UI.ColorEnabled
	hyperlinks := colorEnabled && isTTY(writer)
	linkStyle := export.LinkStyleShort
	if strings.EqualFold(s.Links, string(export.LinkStyleFull)) {
		linkStyle = export.LinkStyleFull
	}
	return export.WriteLeads(writer, leads, format, export.WriteOptions{
		ColorEnabled: colorEnabled,
		Hyperlinks:   hyperlinks,
		LinkStyle:    linkStyle,
	})
}

// openOutput appends to delimited files so repeated runs accumulate rows;
// every other format replaces the file.
func openOutput(path string, format export.Format) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if format == export.FormatCSV || format == export.FormatTSV {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	return os.OpenFile(path, flags, 0o644)
}

func storeLeads(ctx *Context, dsn string, leads []models.Lead) error {
	background := context.Background()
	writer, err := storage.NewPostgresWriter(background, dsn)
	if err != nil {
		return err
	}
	defer writer.Close()

	if err := writer.EnsureSchema(background); err != nil {
		return err
	}
	inserted, err := writer.WriteBatch(background, leads)
	if err != nil {
		return err
	}
	ctx.Logger.Info().Int("inserted", inserted).Int("leads", len(leads)).Msg("stored leads in postgres")
	return nil
}

func pathsEqual(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil {
		return absA == absB
	}
	return filepath.Clean(a) == filepath.Clean(b)
}

func updateSeenHistory(seenPath string, input []models.Lead) error {
	history, err := seen.ReadLeadsAllowMissing(seenPath)
	if err != nil {
		return fmt.Errorf("read --seen: %w", err)
	}
	merged, _ := seen.Merge(history, input)
	if err := seen.WriteLeads(seenPath, merged); err != nil {
		return fmt.Errorf("write --seen: %w", err)
	}
	return nil
}

func sortLeadsByName(leads []models.Lead) {
	sort.SliceStable(leads, func(i, j int) bool {
		return strings.ToLower(leads[i].BusinessName) < strings.ToLower(leads[j].BusinessName)
	})
}

func printSearchSummary(ctx *Context, leads []models.Lead) {
	if ctx == nil || ctx.Err == nil {
		return
	}
	_, _ = fmt.Fprintf(ctx.Err, "%s\n", formatSearchSummary(leads))
}

func formatSearchSummary(leads []models.Lead) string {
	withEmail := 0
	for _, lead := range leads {
		if lead.HasEmail() {
			withEmail++
		}
	}

	counts := countLeadsByState(leads)
	byState := "none"
	if len(counts) > 0 {
		parts := make([]string, 0, len(counts))
		for _, count := range counts {
			parts = append(parts, fmt.Sprintf("%s:%d", count.state, count.total))
		}
		byState = strings.Join(parts, ", ")
	}
	return fmt.Sprintf("summary: leads=%d with_email=%d by_state=%s", len(leads), withEmail, byState)
}

type stateCount struct {
	state string
	total int
}

func countLeadsByState(leads []models.Lead) []stateCount {
	totals := make(map[string]int, len(leads))
	for _, lead := range leads {
		state := strings.ToUpper(strings.TrimSpace(lead.State))
		if state == "" {
			state = "unknown"
		}
		totals[state]++
	}

	counts := make([]stateCount, 0, len(totals))
	for state, total := range totals {
		counts = append(counts, stateCount{state: state, total: total})
	}
	sort.Slice(counts, func(i, j int) bool {
		return counts[i].state < counts[j].state
	})
	return counts
}

type queryFile struct {
	Keywords  []string `json:"keywords"`
	Locations []string `json:"locations"`
}

// resolveQueries builds the keyword x location product with locations as
// the outer loop. Flags come before query file entries.
func resolveQueries(keywords []string, locations []string, path string, defaultLocation string) ([]models.SearchQuery, error) {
	var fromFile queryFile
	if strings.TrimSpace(path) != "" {
		var err error
		fromFile, err = loadQueryFile(path)
		if err != nil {
			return nil, err
		}
	}

	keywordList := uniqueFold(append(splitKeywords(keywords), splitKeywords(fromFile.Keywords)...))
	locationList := uniqueFold(append(append([]string{}, locations...), fromFile.Locations...))
	if len(locationList) == 0 && strings.TrimSpace(defaultLocation) != "" {
		locationList = []string{strings.TrimSpace(defaultLocation)}
	}

	if len(keywordList) == 0 {
		return nil, fmt.Errorf("at least one non-empty keyword is required")
	}
	if len(locationList) == 0 {
		return nil, fmt.Errorf("at least one location is required (--location or default_location)")
	}
	if total := len(keywordList) * len(locationList); total > maxQueries {
		return nil, fmt.Errorf("too many queries: %d keywords x %d locations exceeds max %d", len(keywordList), len(locationList), maxQueries)
	}

	queries := make([]models.SearchQuery, 0, len(keywordList)*len(locationList))
	for _, location := range locationList {
		for _, keyword := range keywordList {
			queries = append(queries, models.SearchQuery{Keyword: keyword, Location: location})
		}
	}
	return queries, nil
}

func loadQueryFile(path string) (queryFile, error) {
	var decoded queryFile
	data, err := os.ReadFile(path)
	if err != nil {
		return decoded, fmt.Errorf("read --query-file %q: %w", path, err)
	}
	if err := json5.Unmarshal(data, &decoded); err != nil {
		return decoded, fmt.Errorf("parse --query-file %q: %w", path, err)
	}
	return decoded, nil
}

func splitKeywords(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		out = append(out, strings.Split(value, ",")...)
	}
	return out
}

// uniqueFold trims values and drops blanks and case-insensitive repeats,
// keeping the first spelling.
func uniqueFold(values []string) []string {
	seenValues := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		key := strings.ToLower(value)
		if _, exists := seenValues[key]; exists {
			continue
		}
		seenValues[key] = struct{}{}
		out = append(out, value)
	}
	return out
}

func resolveFormat(ctx *Context, requested string, outputPath string) (export.Format, error) {
	if ctx.JSONOutput {
		return export.FormatJSON, nil
	}
	if ctx.PlainText {
		return export.FormatTSV, nil
	}
	if requested != "" {
		return parseFormat(requested)
	}
	if outputPath == "" && isTTY(ctx.Out) {
		return export.FormatTable, nil
	}
	return export.FormatCSV, nil
}

func parseFormat(value string) (export.Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "csv":
		return export.FormatCSV, nil
	case "json":
		return export.FormatJSON, nil
	case "md", "markdown":
		return export.FormatMarkdown, nil
	case "tsv":
		return export.FormatTSV, nil
	case "table", "":
		return export.FormatTable, nil
	default:
		return "", fmt.Errorf("unknown format: %s", value)
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func isTTY(out io.Writer) bool {
	output := termenv.NewOutput(out)
	return output.ColorProfile() != termenv.Ascii
}

func startSearchIndicator(ctx *Context) func() {
	if ctx == nil || ctx.Err == nil || ctx.UI == nil {
		return nil
	}
	if !isTTY(ctx.Err) {
		return nil
	}

	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		start := time.Now()
		frames := []string{"|", "/", "-", "\\"}
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()

		for index := 0; ; index++ {
			select {
			case <-done:
				fmt.Fprint(ctx.Err, "\r\033[2K")
				return
			case <-ticker.C:
				seconds := int(time.Since(start).Seconds())
				fmt.Fprintf(ctx.Err, "\r\033[2KCrawling... %ds %s", seconds, frames[index%len(frames)])
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}
