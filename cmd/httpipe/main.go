// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command httpipe fetches a URL, following redirects and decoding the
// response, and writes the body to standard output or a file.
//
// Usage:
//
//	httpipe [flags] URL
//
// Defaults for every request can be kept in a YAML file passed with
// -config; see package internal/config for its layout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gogama/httpipe"
	"github.com/gogama/httpipe/internal/config"
	"github.com/gogama/httpipe/request"
	"github.com/gogama/httpipe/transport"
)

const (
	exitOK     = 0
	exitError  = 1
	exitUsage  = 2
	exitStatus = 22
)

// headerFlags collects repeated -H flags.
type headerFlags []string

func (h *headerFlags) String() string {
	return strings.Join(*h, ", ")
}

func (h *headerFlags) Set(v string) error {
	if !strings.Contains(v, ":") {
		return fmt.Errorf("header %q must have the form Name: value", v)
	}
	*h = append(*h, v)
	return nil
}

type cli struct {
	configFile   string
	method       string
	headers      headerFlags
	data         string
	jsonData     string
	user         string
	timeout      time.Duration
	maxRedirects int
	maxSize      int64
	noFollow     bool
	output       string
	digest       string
	progress     bool
	include      bool
	fail         bool
	verbose      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil)
	stop()
	os.Exit(code)
}

// run executes the command. rt overrides the transport when non-nil.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, rt http.RoundTripper) int {
	var c cli
	fs := flag.NewFlagSet("httpipe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&c.configFile, "config", "", "YAML defaults file")
	fs.StringVar(&c.method, "X", "", "request method")
	fs.Var(&c.headers, "H", "request header `Name: value` (repeatable)")
	fs.StringVar(&c.data, "d", "", "request body text")
	fs.StringVar(&c.jsonData, "json", "", "request body JSON, sent as application/json")
	fs.StringVar(&c.user, "u", "", "basic auth `user:password`")
	fs.DurationVar(&c.timeout, "timeout", 0, "per-hop timeout")
	fs.IntVar(&c.maxRedirects, "max-redirects", request.DefaultMaxRedirects, "maximum redirects followed")
	fs.Int64Var(&c.maxSize, "max-size", 0, "decoded body size ceiling in bytes")
	fs.BoolVar(&c.noFollow, "no-follow", false, "return redirect responses instead of following them")
	fs.StringVar(&c.output, "o", "", "write the body to `file` instead of stdout")
	fs.StringVar(&c.digest, "digest", "", "verify the body against `algorithm:hex` (md5, sha1, sha256, sha512)")
	fs.BoolVar(&c.progress, "progress", false, "report download progress on stderr")
	fs.BoolVar(&c.include, "i", false, "print the status line and headers before the body")
	fs.BoolVar(&c.fail, "f", false, "exit with status 22 on a non-2XX response")
	fs.BoolVar(&c.verbose, "v", false, "log every hop at debug level")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: httpipe [flags] URL")
		fs.PrintDefaults()
		return exitUsage
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg, err := config.Load(c.configFile)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	if c.verbose {
		cfg.Log.Level = "debug"
	}
	logger := slog.New(cfg.Log.Handler(stderr))

	opts, err := c.options(cfg, set)
	if err != nil {
		logger.Error("invalid arguments", "error", err)
		return exitUsage
	}
	dlOpts, err := c.downloadOptions(stderr)
	if err != nil {
		logger.Error("invalid arguments", "error", err)
		return exitUsage
	}

	if rt == nil {
		rt = &transport.Adapter{}
	}
	if cfg.Throttle.RPS > 0 {
		rt, err = transport.Throttle(cfg.Throttle.RPS, cfg.Throttle.Burst, func() *slog.Logger { return logger }, rt)
		if err != nil {
			logger.Error("invalid throttle", "error", err)
			return exitUsage
		}
	}
	client := &httpipe.Client{
		Transport: rt,
		Logger:    logger,
	}

	resp, err := client.Fetch(ctx, fs.Arg(0), opts...)
	if err != nil {
		logger.Error("request failed", "kind", httpipe.Kind(err), "error", err)
		return exitError
	}
	defer func() { _ = resp.Close() }()

	logger.Info("response", "status", resp.StatusCode, "url", resp.URL.String(),
		"hops", resp.Execution.Hops, "duration", resp.Execution.Duration())
	if c.include {
		writeHead(stdout, resp)
	}
	if c.fail && !resp.OK() {
		logger.Error("unsuccessful status", "status", resp.StatusCode)
		return exitStatus
	}

	var n int64
	if c.output != "" {
		n, err = resp.DownloadFile(ctx, c.output, dlOpts...)
	} else {
		n, err = resp.Download(ctx, stdout, dlOpts...)
	}
	if c.progress {
		fmt.Fprintln(stderr)
	}
	if err != nil {
		logger.Error("reading body failed", "kind", httpipe.Kind(err), "error", err)
		return exitError
	}
	logger.Debug("body written", "bytes", n, "output", c.output)
	return exitOK
}

// options layers explicitly set flags over the defaults file.
func (c *cli) options(cfg *config.Config, set map[string]bool) ([]request.Option, error) {
	opts := cfg.Request.Options()
	if set["X"] {
		opts = append(opts, request.WithMethod(c.method))
	}
	for _, h := range c.headers {
		name, value, _ := strings.Cut(h, ":")
		opts = append(opts, request.WithHeader(strings.TrimSpace(name), strings.TrimSpace(value)))
	}
	switch {
	case set["d"] && set["json"]:
		return nil, errors.New("-d and -json are mutually exclusive")
	case set["d"]:
		opts = append(opts, request.WithBody(c.data))
	case set["json"]:
		opts = append(opts, request.WithJSON(json.RawMessage(c.jsonData)))
	}
	if (set["d"] || set["json"]) && !set["X"] && cfg.Request.Method == "" {
		opts = append(opts, request.WithMethod("POST"))
	}
	if set["u"] {
		user, password, ok := strings.Cut(c.user, ":")
		if !ok {
			return nil, fmt.Errorf("-u %q must have the form user:password", c.user)
		}
		opts = append(opts, request.WithBasicAuth(user, password))
	}
	if set["timeout"] {
		opts = append(opts, request.WithTimeout(c.timeout))
	}
	if set["max-redirects"] {
		opts = append(opts, request.WithMaxRedirects(c.maxRedirects))
	}
	if set["max-size"] {
		opts = append(opts, request.WithMaxSize(c.maxSize))
	}
	if c.noFollow {
		opts = append(opts, request.WithFollowRedirects(false))
	}
	return opts, nil
}

func (c *cli) downloadOptions(stderr io.Writer) ([]httpipe.DownloadOption, error) {
	var opts []httpipe.DownloadOption
	if c.digest != "" {
		alg, sum, ok := strings.Cut(c.digest, ":")
		if !ok || sum == "" {
			return nil, fmt.Errorf("-digest %q must have the form algorithm:hex", c.digest)
		}
		opts = append(opts, httpipe.WithDigest(alg, sum))
	}
	if c.progress {
		opts = append(opts, httpipe.WithProgress(func(p httpipe.Progress) {
			fmt.Fprintf(stderr, "\r%s", formatProgress(p))
		}))
	}
	return opts, nil
}

func formatProgress(p httpipe.Progress) string {
	if p.Indeterminate {
		return fmt.Sprintf("%d bytes  %.0f B/s", p.Transferred, p.Rate)
	}
	return fmt.Sprintf("%d/%d bytes  %5.1f%%  %.0f B/s", p.Transferred, p.Total, p.Percent, p.Rate)
}

func writeHead(w io.Writer, resp *httpipe.Response) {
	fmt.Fprintf(w, "%d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
	resp.Header.Each(func(name string, values []string) {
		for _, value := range values {
			fmt.Fprintf(w, "%s: %s\n", name, value)
		}
	})
	fmt.Fprintln(w)
}
