package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramkansal/nitfang/internal/config"
	"github.com/ramkansal/nitfang/internal/output"
	"github.com/ramkansal/nitfang/internal/scraper"
	"github.com/ramkansal/nitfang/pkg/plugin"
)

var version = "1.0.0"

// options holds the persistent CLI flags.
type options struct {
	configFile string

	// Mirror and fetching
	mirror     string
	fetcher    string
	timeout    time.Duration
	proxy      string
	userAgent  string
	showUI     bool
	blockMedia bool
	parallel   int

	// Output
	format  string
	output  string
	verbose bool
	noColor bool
}

func main() {
	enableANSI()

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
	defer stop()

	opts := &options{}
	if err := newRootCmd(opts).ExecuteContext(ctx); err != nil {
		fatal(opts, "%v", err)
	}
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:     "nitfang",
		Short:   "Scrape profiles, timelines and user search from a Nitter mirror",
		Version: version,
		Long: `nitfang reads public Twitter/X data through a Nitter mirror. Pages are
rendered with a headless browser (or fetched over plain HTTP) and turned into
structured records: user search results, profile headers and tweets.`,
		Example: `  # Search for accounts
  nitfang search "jack dorsey" --since 2024-01-01

  # Profile header, first timeline page and photo rail
  nitfang profile jack

  # Several profiles at once, as a Markdown report
  nitfang profile jack dorsey TwitterDev -f markdown -o report.md

  # Three pages of tweets and replies over plain HTTP
  nitfang tweets jack --pages 3 --replies --fetcher http`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	formats := make([]string, len(output.Formats))
	for i, f := range output.Formats {
		formats[i] = string(f)
	}

	def := scraper.DefaultConfig()
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "path to a TOML config file (default: user config dir)")
	pf.StringVarP(&opts.mirror, "mirror", "m", def.MirrorURL, "Nitter mirror base URL")
	pf.StringVar(&opts.fetcher, "fetcher", string(def.FetcherMode), "fetcher mode: browser, chromedp, http, auto")
	pf.DurationVarP(&opts.timeout, "timeout", "t", def.Timeout, "page load timeout")
	pf.StringVarP(&opts.proxy, "proxy", "p", os.Getenv("NITFANG_PROXY"), "http/socks5 proxy, defaults to NITFANG_PROXY")
	pf.StringVar(&opts.userAgent, "user-agent", "", "custom user-agent string")
	pf.BoolVar(&opts.showUI, "show-ui", !def.Headless, "show the browser window (disable headless mode)")
	pf.BoolVar(&opts.blockMedia, "block-media", def.BlockMedia, "do not download images and fonts in browser fetchers")
	pf.IntVarP(&opts.parallel, "concurrency", "c", def.Parallelism, "profiles fetched at once by a multi-handle lookup")
	pf.StringVarP(&opts.format, "format", "f", string(output.FormatJSON), "output format: "+strings.Join(formats, ", "))
	pf.StringVarP(&opts.output, "output", "o", "", "write results to a file instead of stdout")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log every fetch to stderr")
	pf.BoolVar(&opts.noColor, "no-color", false, "disable colored error output")

	root.AddCommand(
		newSearchCmd(opts),
		newProfileCmd(opts),
		newTweetsCmd(opts),
	)
	return root
}

// resolve merges defaults, the config file and explicitly set flags, in
// that order.
func resolve(cmd *cobra.Command, opts *options) (*scraper.Config, output.Format, error) {
	cfg := scraper.DefaultConfig()

	file, err := config.Load(opts.configFile)
	if err != nil {
		return nil, "", err
	}
	if err := file.Apply(cfg); err != nil {
		return nil, "", fmt.Errorf("config: %w", err)
	}
	format := file.Format(output.FormatJSON)

	flags := cmd.Flags()
	if flags.Changed("mirror") {
		cfg.MirrorURL = opts.mirror
	}
	if flags.Changed("fetcher") {
		mode := scraper.FetcherMode(strings.ToLower(opts.fetcher))
		if !mode.Valid() {
			return nil, "", fmt.Errorf("unknown fetcher mode %q", opts.fetcher)
		}
		cfg.FetcherMode = mode
	}
	if flags.Changed("timeout") {
		if opts.timeout <= 0 {
			return nil, "", fmt.Errorf("timeout must be positive, got %s", opts.timeout)
		}
		cfg.Timeout = opts.timeout
	}
	if flags.Changed("proxy") || (cfg.Proxy == "" && opts.proxy != "") {
		cfg.Proxy = opts.proxy
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent = opts.userAgent
	}
	if flags.Changed("show-ui") {
		cfg.Headless = !opts.showUI
	}
	if flags.Changed("block-media") {
		cfg.BlockMedia = opts.blockMedia
	}
	if flags.Changed("concurrency") {
		if opts.parallel < 1 {
			return nil, "", fmt.Errorf("concurrency must be at least 1, got %d", opts.parallel)
		}
		cfg.Parallelism = opts.parallel
	}
	if flags.Changed("format") {
		format = output.Format(opts.format)
	}

	return cfg, format, nil
}

// session is everything a subcommand needs to run and print.
type session struct {
	scraper *scraper.Scraper
	writer  plugin.OutputWriter
	close   func() error
}

func open(cmd *cobra.Command, opts *options) (*session, error) {
	cfg, format, err := resolve(cmd, opts)
	if err != nil {
		return nil, err
	}

	var out io.Writer = cmd.OutOrStdout()
	var file *os.File
	if opts.output != "" {
		file, err = os.Create(opts.output)
		if err != nil {
			return nil, fmt.Errorf("create output file: %w", err)
		}
		out = file
	}

	writer, err := output.New(format, out)
	if err != nil {
		closeQuietly(file)
		return nil, err
	}

	s, err := scraper.Open(cfg, slog.Default())
	if err != nil {
		closeQuietly(file)
		return nil, fmt.Errorf("initialization failed: %w", err)
	}
	slog.Debug("session ready", "mirror", cfg.MirrorURL, "fetcher", s.Fetcher().Name(), "format", writer.Name())

	return &session{
		scraper: s,
		writer:  writer,
		close: func() error {
			err := s.Close()
			if file != nil {
				if cerr := file.Close(); cerr != nil && err == nil {
					err = cerr
				}
				if err == nil {
					fmt.Fprintf(os.Stderr, "Output written to: %s\n", opts.output)
				}
			}
			return err
		},
	}, nil
}

func closeQuietly(f *os.File) {
	if f != nil {
		_ = f.Close()
	}
}

// ---------- Utilities ----------

func clr(opts *options, color, text string) string {
	if opts.noColor {
		return text
	}
	codes := map[string]string{
		"red":    "\033[31m",
		"yellow": "\033[33m",
		"reset":  "\033[0m",
	}
	c, ok := codes[color]
	if !ok {
		return text
	}
	return c + text + codes["reset"]
}

func fatal(opts *options, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", clr(opts, "red", "ERROR:"), fmt.Sprintf(format, args...))
	os.Exit(1)
}
