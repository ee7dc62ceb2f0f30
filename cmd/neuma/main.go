// Command neuma is the CLI tool for chant melody alignment.
// It provides commands for aligning texts with volpiano melodies,
// syllabifying Latin, managing chant databases, and serving the web UI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/chantlab/neuma/core/align"
	"github.com/chantlab/neuma/core/cache"
	"github.com/chantlab/neuma/core/cantus"
	"github.com/chantlab/neuma/core/chant"
	"github.com/chantlab/neuma/core/latin"
	"github.com/chantlab/neuma/core/render"
	"github.com/chantlab/neuma/core/sqlite"
	"github.com/chantlab/neuma/internal/batch"
	"github.com/chantlab/neuma/internal/chantstore"
	"github.com/chantlab/neuma/internal/fixtures"
	"github.com/chantlab/neuma/internal/logging"
	"github.com/chantlab/neuma/internal/web"
)

const version = "0.1.0"

// CLI defines the command-line interface for neuma.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)" enum:"debug,info,warn,error" default:"info"`
	LogFormat string `name:"log-format" help:"Log format (json, text)" enum:"json,text" default:"text"`

	Align     AlignCmd     `cmd:"" help:"Align a chant text with its volpiano melody"`
	Syllabify SyllabifyCmd `cmd:"" help:"Syllabify a chant text into sections and words"`
	Word      WordCmd      `cmd:"" help:"Syllabify a single Latin word"`
	Batch     BatchCmd     `cmd:"" help:"Align every chant in a corpus file"`
	DB        DBGroup      `cmd:"" name:"db" help:"Chant database operations (init, import, lookup, search, export)"`
	Serve     ServeCmd     `cmd:"" help:"Start the web UI and JSON API server"`
	Version   VersionCmd   `cmd:"" help:"Print version information"`
}

// AlignCmd aligns one chant text with one melody.
type AlignCmd struct {
	Text           string `arg:"" help:"Chant text"`
	Volpiano       string `arg:"" help:"Volpiano melody"`
	Clean          bool   `help:"Strip invalid characters instead of failing on them"`
	Presyllabified bool   `help:"Treat embedded hyphens as the only syllable breaks"`
	JSON           bool   `help:"Output as JSON"`
	HTML           bool   `help:"Output a standalone HTML page"`
	Title          string `help:"Heading for HTML output"`
}

func (c *AlignCmd) Run() error {
	pairs, review, err := align.TextAndVolpiano(c.Text, c.Volpiano, align.Options{
		Clean:          c.Clean,
		Presyllabified: c.Presyllabified,
	})
	if err != nil {
		return fmt.Errorf("alignment failed: %w", err)
	}

	switch {
	case c.HTML:
		fmt.Println(render.Alignment(pairs, render.Options{
			Title:      c.Title,
			Standalone: true,
		}))
	case c.JSON:
		printJSON(struct {
			Pairs  []align.Pair `json:"pairs"`
			Review bool         `json:"review"`
		}{pairs, review})
	default:
		printPairs(pairs)
		if review {
			fmt.Println("\nNote: this alignment needs review")
		}
	}
	return nil
}

// SyllabifyCmd splits a chant text into sections of syllabified words.
type SyllabifyCmd struct {
	Text           string `arg:"" help:"Chant text"`
	Clean          bool   `help:"Strip invalid characters instead of failing on them"`
	Presyllabified bool   `help:"Treat embedded hyphens as the only syllable breaks"`
	JSON           bool   `help:"Output as JSON"`
}

func (c *SyllabifyCmd) Run() error {
	sections, err := cantus.SyllabifyText(c.Text, cantus.Options{
		Clean:          c.Clean,
		Presyllabified: c.Presyllabified,
	})
	if err != nil {
		return fmt.Errorf("syllabification failed: %w", err)
	}

	if c.JSON {
		printJSON(struct {
			Sections []chant.Section `json:"sections"`
		}{sections})
		return nil
	}
	for _, sec := range sections {
		words := make([]string, len(sec.Words))
		for i, w := range sec.Words {
			words[i] = strings.Join(w.Syllables, "")
		}
		fmt.Printf("  %-14s %s\n", sec.Kind, strings.Join(words, " "))
	}
	return nil
}

// WordCmd syllabifies a single Latin word.
type WordCmd struct {
	Word string `arg:"" help:"Latin word"`
}

func (c *WordCmd) Run() error {
	syllables, err := latin.Split(c.Word)
	if err != nil {
		return fmt.Errorf("syllabification failed: %w", err)
	}
	fmt.Println(strings.Join(syllables, ""))
	return nil
}

// BatchCmd aligns a whole corpus file.
type BatchCmd struct {
	Corpus         string `arg:"" help:"Corpus file (.csv, .csv.xz, or .xml)" type:"existingfile"`
	Clean          bool   `help:"Strip invalid characters instead of failing on them"`
	Presyllabified bool   `help:"Treat embedded hyphens as the only syllable breaks"`
	Workers        int    `help:"Worker count (0 uses the core count)"`
	Output         string `short:"o" help:"Write per-chant results to a JSON file" type:"path"`
	HTML           string `help:"Write rendered alignments to an HTML file" type:"path"`
	Stylesheet     string `help:"Stylesheet href for HTML output" default:"static/volpiano.css"`
}

func (c *BatchCmd) Run() error {
	chants, err := fixtures.ReadFile(c.Corpus)
	if err != nil {
		return fmt.Errorf("reading corpus: %w", err)
	}
	if len(chants) == 0 {
		return fmt.Errorf("corpus contains no chants: %s", c.Corpus)
	}

	results, summary, err := batch.Run(context.Background(), chants, batch.Options{
		Workers: c.Workers,
		Align: align.Options{
			Clean:          c.Clean,
			Presyllabified: c.Presyllabified,
		},
		Cache: cache.NewDefaultAlignmentCache(),
	})
	if err != nil {
		return fmt.Errorf("batch run failed: %w", err)
	}

	fmt.Printf("Aligned %d chants in %s\n", summary.Total, summary.Duration.Round(time.Millisecond))
	if summary.Reviewed > 0 {
		fmt.Printf("  %d flagged for review\n", summary.Reviewed)
	}
	if summary.Failed > 0 {
		fmt.Printf("  %d failed\n", summary.Failed)
		for _, res := range results {
			if res.Err != nil {
				fmt.Printf("    %s: %v\n", res.Ref.String(), res.Err)
			}
		}
	}

	if c.Output != "" {
		if err := writeBatchJSON(c.Output, results, summary); err != nil {
			return err
		}
		fmt.Printf("Results written to %s\n", c.Output)
	}
	if c.HTML != "" {
		if err := writeBatchHTML(c.HTML, c.Stylesheet, results); err != nil {
			return err
		}
		fmt.Printf("HTML written to %s\n", c.HTML)
	}
	return nil
}

// batchEntry is the JSON report shape for one chant. Errors are carried
// as strings so failed chants survive the round trip.
type batchEntry struct {
	Ref    string       `json:"ref"`
	Pairs  []align.Pair `json:"pairs,omitempty"`
	Review bool         `json:"review"`
	Error  string       `json:"error,omitempty"`
}

func writeBatchJSON(path string, results []batch.Result, summary batch.Summary) error {
	entries := make([]batchEntry, len(results))
	for i, res := range results {
		entries[i] = batchEntry{
			Ref:    res.Ref.String(),
			Pairs:  res.Pairs,
			Review: res.Review,
		}
		if res.Err != nil {
			entries[i].Error = res.Err.Error()
		}
	}

	report := struct {
		Summary batch.Summary `json:"summary"`
		Results []batchEntry  `json:"results"`
	}{summary, entries}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	return nil
}

func writeBatchHTML(path, stylesheet string, results []batch.Result) error {
	doc := render.NewDocument()
	doc.SetStylesheet(stylesheet)
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		title := res.Ref.String()
		if res.Review {
			title += " (review)"
		}
		doc.AddChant(title, res.Pairs)
	}
	if err := os.WriteFile(path, []byte(doc.Build()), 0o644); err != nil {
		return fmt.Errorf("writing HTML: %w", err)
	}
	return nil
}

// DBGroup contains chant database operations.
type DBGroup struct {
	Init   DBInitCmd   `cmd:"" help:"Create an empty chant database"`
	Import DBImportCmd `cmd:"" help:"Import a corpus file into a database"`
	Lookup DBLookupCmd `cmd:"" help:"Look up a chant by reference"`
	Search DBSearchCmd `cmd:"" help:"Search chants by incipit"`
	Export DBExportCmd `cmd:"" help:"Export a database to a corpus file"`
}

type DBInitCmd struct {
	Path string `arg:"" help:"Database file to create" type:"path"`
}

func (c *DBInitCmd) Run() error {
	store, err := chantstore.Open(c.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	fmt.Printf("Created chant database %s\n", c.Path)
	return nil
}

type DBImportCmd struct {
	DB     string `arg:"" help:"Database file" type:"path"`
	Corpus string `arg:"" help:"Corpus file (.csv, .csv.xz, or .xml)" type:"existingfile"`
}

func (c *DBImportCmd) Run() error {
	chants, err := fixtures.ReadFile(c.Corpus)
	if err != nil {
		return fmt.Errorf("reading corpus: %w", err)
	}

	store, err := chantstore.Open(c.DB)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	n, err := store.Import(chants)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	fmt.Printf("Imported %d chants into %s\n", n, c.DB)
	return nil
}

type DBLookupCmd struct {
	DB    string `arg:"" help:"Database file" type:"existingfile"`
	Ref   string `arg:"" help:"Chant reference (siglum folio sequence)"`
	JSON  bool   `help:"Output as JSON"`
	Align bool   `help:"Also print the text aligned with the melody"`
}

func (c *DBLookupCmd) Run() error {
	ref, err := chant.ParseRef(c.Ref)
	if err != nil {
		return fmt.Errorf("invalid reference %q: %w", c.Ref, err)
	}

	store, err := chantstore.OpenReadOnly(c.DB)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	found, err := store.Lookup(ref)
	if err != nil {
		return err
	}

	if c.JSON {
		printJSON(found)
		return nil
	}
	fmt.Printf("Ref:      %s\n", found.Ref.String())
	if found.Incipit != "" {
		fmt.Printf("Incipit:  %s\n", found.Incipit)
	}
	fmt.Printf("Text:     %s\n", found.FullText)
	fmt.Printf("Volpiano: %s\n", found.Volpiano)

	if c.Align {
		pairs, review, err := align.TextAndVolpiano(found.FullText, found.Volpiano, align.Options{})
		if err != nil {
			return fmt.Errorf("alignment failed: %w", err)
		}
		fmt.Println()
		printPairs(pairs)
		if review {
			fmt.Println("\nNote: this alignment needs review")
		}
	}
	return nil
}

type DBSearchCmd struct {
	DB    string `arg:"" help:"Database file" type:"existingfile"`
	Query string `arg:"" help:"Incipit prefix to search for"`
	JSON  bool   `help:"Output as JSON"`
}

func (c *DBSearchCmd) Run() error {
	store, err := chantstore.OpenReadOnly(c.DB)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	matches, err := store.Search(c.Query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if c.JSON {
		printJSON(matches)
		return nil
	}
	for _, m := range matches {
		fmt.Printf("  %-20s %s\n", m.Ref.String(), m.Incipit)
	}
	fmt.Printf("\nTotal: %d chants\n", len(matches))
	return nil
}

type DBExportCmd struct {
	DB     string `arg:"" help:"Database file" type:"existingfile"`
	Output string `arg:"" help:"Corpus file to write (.csv, .csv.xz, or .xml)" type:"path"`
}

func (c *DBExportCmd) Run() error {
	store, err := chantstore.OpenReadOnly(c.DB)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	chants, err := store.All()
	if err != nil {
		return fmt.Errorf("reading database: %w", err)
	}
	if err := fixtures.WriteFile(c.Output, chants); err != nil {
		return fmt.Errorf("writing corpus: %w", err)
	}
	fmt.Printf("Exported %d chants to %s\n", len(chants), c.Output)
	return nil
}

// ServeCmd starts the web UI and API server.
type ServeCmd struct {
	Port      int    `help:"HTTP server port" default:"8080"`
	DB        string `help:"Chant database for lookup and search endpoints" type:"path"`
	Workers   int    `help:"Worker count for batch jobs (0 uses the core count)"`
	APIKey    string `name:"api-key" help:"Require this key on /api/ endpoints" env:"NEUMA_API_KEY"`
	RateLimit int    `name:"rate-limit" help:"API requests per minute per client (0 disables limiting)"`
	Burst     int    `help:"Rate limit burst size"`
	TLSCert   string `name:"tls-cert" help:"TLS certificate file" type:"path"`
	TLSKey    string `name:"tls-key" help:"TLS private key file" type:"path"`
}

func (c *ServeCmd) Run() error {
	cfg := web.Config{
		Port:    c.Port,
		DBPath:  c.DB,
		Workers: c.Workers,
		RateLimit: web.RateLimiterConfig{
			RequestsPerMinute: c.RateLimit,
			BurstSize:         c.Burst,
		},
	}
	if c.APIKey != "" {
		cfg.Auth = web.AuthConfig{Enabled: true, APIKey: c.APIKey}
	}
	if c.TLSCert != "" || c.TLSKey != "" {
		cfg.TLS = web.TLSConfig{Enabled: true, CertFile: c.TLSCert, KeyFile: c.TLSKey}
	}
	return web.Start(cfg)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("neuma version %s\n", version)
	info := sqlite.GetInfo()
	fmt.Printf("  sqlite driver: %s (%s)\n", info.Package, info.DriverType)
	return nil
}

// printPairs lays the alignment out as two columns, text then melody.
func printPairs(pairs []align.Pair) {
	for _, p := range pairs {
		fmt.Printf("  %-12s %s\n", p.Text, p.Volpiano)
	}
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func logLevelFromFlag(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func logFormatFromFlag(s string) logging.Format {
	if s == "json" {
		return logging.FormatJSON
	}
	return logging.FormatText
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("neuma"),
		kong.Description("Align chant texts with their volpiano melodies."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	logging.InitLogger(logLevelFromFlag(CLI.LogLevel), logFormatFromFlag(CLI.LogFormat))
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
