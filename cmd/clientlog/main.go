// Clientlog is a command line tool which sends HTTP requests and logs them.
//
// Usage:
//
//	clientlog [flags] URL...
//
// Logging is configured by a YAML file in the user's config directory
// or by the file given with -config. Flags override the config file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ErikKalkoken/clientlogging/internal/respcache"
	"github.com/ErikKalkoken/clientlogging/pkg/bodytap"
	"github.com/ErikKalkoken/clientlogging/pkg/clientlogging"
)

// options holds the values of all defined flags.
type options struct {
	level    logLevelFlag
	config   string
	fullURL  bool
	headers  bool
	body     bool
	logFile  bool
	showDirs bool
	method   string
	data     string
	dataFile string
	stream   bool
	retries  int
	parallel int
	rate     float64
	cache    bool
	cacheTTL time.Duration
	redact   string
}

func defineFlags(fs *flag.FlagSet) *options {
	opt := &options{}
	opt.level.value = slog.LevelInfo
	fs.Var(&opt.level, "loglevel", "set log level")
	fs.StringVar(&opt.config, "config", "", "path to config file (default: user config directory)")
	fs.BoolVar(&opt.fullURL, "full-url", false, "log full URLs instead of hosts only")
	fs.BoolVar(&opt.headers, "headers", false, "log headers")
	fs.BoolVar(&opt.body, "body", false, "log payloads")
	fs.BoolVar(&opt.logFile, "logfile", false, "write logs to a file instead of the console")
	fs.BoolVar(&opt.showDirs, "show-dirs", false, "show directories where user data is stored")
	fs.StringVar(&opt.method, "method", http.MethodGet, "request method")
	fs.StringVar(&opt.data, "data", "", "request payload")
	fs.StringVar(&opt.dataFile, "data-file", "", "read request payload from file")
	fs.BoolVar(&opt.stream, "stream", false, "write payload from -data-file while sending")
	fs.IntVar(&opt.retries, "retries", 3, "maximum number of retries per request")
	fs.IntVar(&opt.parallel, "parallel", 4, "maximum number of concurrent requests")
	fs.Float64Var(&opt.rate, "rate", 0, "maximum requests per second (0 = unlimited)")
	fs.BoolVar(&opt.cache, "cache", false, "cache responses in memory")
	fs.DurationVar(&opt.cacheTTL, "cache-ttl", 5*time.Minute, "maximum time to keep cached responses")
	fs.StringVar(&opt.redact, "redact", "", "comma separated names of headers to redact")
	return opt
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	opt := defineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ad := newAppDirs()
	if opt.showDirs {
		fmt.Fprintf(stdout, "Config: %s\n", ad.config)
		fmt.Fprintf(stdout, "Logs: %s\n", ad.log)
		return nil
	}
	urls := fs.Args()
	if len(urls) == 0 {
		return errors.New("no URL given")
	}
	if opt.data != "" && opt.dataFile != "" {
		return errors.New("-data and -data-file are mutually exclusive")
	}
	if opt.stream && opt.dataFile == "" {
		return errors.New("-stream requires -data-file")
	}
	if opt.parallel < 1 {
		return fmt.Errorf("invalid value for -parallel: %d", opt.parallel)
	}

	var logOut io.Writer = stderr
	if opt.logFile {
		fn, err := ad.initLogFile()
		if err != nil {
			return err
		}
		lj := &lumberjack.Logger{
			Filename:   fn,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
		}
		defer lj.Close()
		logOut = lj
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: opt.level.value}))

	cfg, err := loadConfig(fs, opt, ad)
	if err != nil {
		return err
	}
	cfg.Sink = clientlogging.NewSlogSink(logger)

	c := retryablehttp.NewClient()
	c.Logger = logger
	c.RetryMax = opt.retries
	if opt.cache {
		rc := respcache.New(opt.cacheTTL)
		defer rc.Close()
		c.HTTPClient.Transport = rc.Transport(c.HTTPClient.Transport)
	}
	ic := clientlogging.Install(c, cfg)
	defer ic.Close()

	var limiter *rate.Limiter
	if opt.rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opt.rate), 1)
	}
	results := make([]string, len(urls))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opt.parallel)
	for i, u := range urls {
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
			}
			r, err := fetch(ctx, c, opt, u)
			if err != nil {
				return fmt.Errorf("%s: %w", u, err)
			}
			results[i] = r
			return nil
		})
	}
	err = g.Wait()
	ic.Wait()
	for _, r := range results {
		if r != "" {
			fmt.Fprintln(stdout, r)
		}
	}
	return err
}

func loadConfig(fs *flag.FlagSet, opt *options, ad appDirs) (clientlogging.Config, error) {
	name, mustExist := opt.config, true
	if name == "" {
		name, mustExist = ad.configFile(), false
	}
	fc, err := loadConfigFile(name, mustExist)
	if err != nil {
		return clientlogging.Config{}, err
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	fc = fc.apply(opt, func(name string) bool {
		return set[name]
	})
	return fc.toConfig()
}

// fetch sends one request and returns a summary of the response.
func fetch(ctx context.Context, c *retryablehttp.Client, opt *options, url string) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, opt.method, url, opt.requestBody())
	if err != nil {
		return "", err
	}
	resp, err := c.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", resp.Status, humanize.Bytes(uint64(n)), url), nil
}

// requestBody returns the payload of a request in a form accepted by retryablehttp.
// File payloads are opened again for every attempt.
func (opt *options) requestBody() any {
	switch {
	case opt.data != "":
		return []byte(opt.data)
	case opt.dataFile != "" && opt.stream:
		return retryablehttp.ReaderFunc(func() (io.Reader, error) {
			return bodytap.NewWriterBody(func(w io.Writer) error {
				f, err := os.Open(opt.dataFile)
				if err != nil {
					return err
				}
				defer f.Close()
				_, err = io.Copy(w, f)
				return err
			}), nil
		})
	case opt.dataFile != "":
		return retryablehttp.ReaderFunc(func() (io.Reader, error) {
			f, err := os.Open(opt.dataFile)
			if err != nil {
				return nil, err
			}
			return f, nil
		})
	}
	return nil
}
