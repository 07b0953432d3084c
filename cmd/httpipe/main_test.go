// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogama/httpipe"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echo struct {
	Method string
	Header http.Header
	Body   string
}

func newServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/hello", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "hello, world")
	})
	mux.HandleFunc("/sized", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "12")
		_, _ = io.WriteString(w, "hello, world")
	})
	mux.HandleFunc("/gzip", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = io.WriteString(gz, "compressed hello")
		_ = gz.Close()
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/hello", http.StatusFound)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "not here")
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(echo{Method: r.Method, Header: r.Header, Body: string(b)})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func execute(t *testing.T, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr, nil)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := execute(t)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "usage: httpipe")

	code, _, _ = execute(t, "-bogus", "http://example.com")
	assert.Equal(t, exitUsage, code)

	code, _, _ = execute(t, "-H", "no-colon", "http://example.com")
	assert.Equal(t, exitUsage, code)

	code, _, _ = execute(t, "-d", "a", "-json", "{}", "http://example.com")
	assert.Equal(t, exitUsage, code)

	code, _, _ = execute(t, "-u", "nopassword", "http://example.com")
	assert.Equal(t, exitUsage, code)

	code, _, _ = execute(t, "-digest", "sha256", "http://example.com")
	assert.Equal(t, exitUsage, code)

	code, _, _ = execute(t, "-config", filepath.Join(t.TempDir(), "absent.yaml"), "http://example.com")
	assert.Equal(t, exitUsage, code)
}

func TestRun_Fetch(t *testing.T) {
	server := newServer(t)

	t.Run("plain", func(t *testing.T) {
		code, stdout, _ := execute(t, server.URL+"/hello")
		assert.Equal(t, exitOK, code)
		assert.Equal(t, "hello, world", stdout)
	})
	t.Run("gzip", func(t *testing.T) {
		code, stdout, _ := execute(t, server.URL+"/gzip")
		assert.Equal(t, exitOK, code)
		assert.Equal(t, "compressed hello", stdout)
	})
	t.Run("redirect", func(t *testing.T) {
		code, stdout, stderr := execute(t, "-v", server.URL+"/moved")
		assert.Equal(t, exitOK, code)
		assert.Equal(t, "hello, world", stdout)
		assert.Contains(t, stderr, "following redirect")
		assert.Contains(t, stderr, "hops=1")
	})
	t.Run("no follow", func(t *testing.T) {
		code, stdout, _ := execute(t, "-no-follow", "-i", server.URL+"/moved")
		assert.Equal(t, exitOK, code)
		assert.Contains(t, stdout, "302 Found\n")
		assert.Contains(t, stdout, "location: /hello\n")
	})
	t.Run("redirect limit", func(t *testing.T) {
		code, _, stderr := execute(t, "-max-redirects", "0", server.URL+"/moved")
		assert.Equal(t, exitError, code)
		assert.Contains(t, stderr, "kind=redirect_limit")
	})
	t.Run("include", func(t *testing.T) {
		code, stdout, _ := execute(t, "-i", server.URL+"/hello")
		assert.Equal(t, exitOK, code)
		assert.Contains(t, stdout, "200 OK\n")
		assert.Contains(t, stdout, "content-type: text/plain\n")
		assert.Contains(t, stdout, "\n\nhello, world")
	})
	t.Run("fail on status", func(t *testing.T) {
		code, stdout, _ := execute(t, "-f", server.URL+"/missing")
		assert.Equal(t, exitStatus, code)
		assert.Empty(t, stdout)

		code, stdout, _ = execute(t, server.URL+"/missing")
		assert.Equal(t, exitOK, code)
		assert.Equal(t, "not here", stdout)
	})
	t.Run("size ceiling", func(t *testing.T) {
		code, _, stderr := execute(t, "-max-size", "5", server.URL+"/hello")
		assert.Equal(t, exitError, code)
		assert.Contains(t, stderr, "kind=exceeded_size")
	})
	t.Run("head", func(t *testing.T) {
		code, stdout, stderr := execute(t, "-X", "HEAD", "-i", server.URL+"/sized")
		assert.Equal(t, exitOK, code, stderr)
		assert.Contains(t, stdout, "200 OK\n")
		assert.Contains(t, stdout, "content-length: 12\n")
		assert.NotContains(t, stdout, "hello, world")
	})
	t.Run("head to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.txt")
		code, _, stderr := execute(t, "-X", "HEAD", "-o", path, server.URL+"/sized")
		require.Equal(t, exitOK, code, stderr)
		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Empty(t, b)
	})
	t.Run("json log format", func(t *testing.T) {
		dir := t.TempDir()
		cfgPath := filepath.Join(dir, "httpipe.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte("log:\n  format: json\n"), 0o600))
		code, _, stderr := execute(t, "-config", cfgPath, server.URL+"/hello")
		assert.Equal(t, exitOK, code)
		assert.Contains(t, stderr, `"msg":"response"`)
	})
}

func TestRun_RequestOptions(t *testing.T) {
	server := newServer(t)

	decodeEcho := func(t *testing.T, stdout string) echo {
		var e echo
		require.NoError(t, json.Unmarshal([]byte(stdout), &e))
		return e
	}

	t.Run("data implies POST", func(t *testing.T) {
		code, stdout, _ := execute(t, "-d", "payload", "-H", "X-Extra: 1", server.URL+"/echo")
		require.Equal(t, exitOK, code)
		e := decodeEcho(t, stdout)
		assert.Equal(t, "POST", e.Method)
		assert.Equal(t, "payload", e.Body)
		assert.Equal(t, "text/plain;charset=UTF-8", e.Header.Get("Content-Type"))
		assert.Equal(t, "1", e.Header.Get("X-Extra"))
	})
	t.Run("json", func(t *testing.T) {
		code, stdout, _ := execute(t, "-X", "PUT", "-json", `{ "a": 1 }`, server.URL+"/echo")
		require.Equal(t, exitOK, code)
		e := decodeEcho(t, stdout)
		assert.Equal(t, "PUT", e.Method)
		assert.Equal(t, `{"a":1}`, e.Body)
		assert.Equal(t, "application/json", e.Header.Get("Content-Type"))
	})
	t.Run("basic auth", func(t *testing.T) {
		code, stdout, _ := execute(t, "-u", "patsy:password", server.URL+"/echo")
		require.Equal(t, exitOK, code)
		e := decodeEcho(t, stdout)
		assert.Equal(t, "Basic cGF0c3k6cGFzc3dvcmQ=", e.Header.Get("Authorization"))
	})
	t.Run("config defaults", func(t *testing.T) {
		cfgPath := filepath.Join(t.TempDir(), "httpipe.yaml")
		content := "request:\n  method: DELETE\n  headers:\n    X-From-File: file\nthrottle:\n  rps: 100\n  burst: 1\n"
		require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))
		code, stdout, _ := execute(t, "-config", cfgPath, server.URL+"/echo")
		require.Equal(t, exitOK, code)
		e := decodeEcho(t, stdout)
		assert.Equal(t, "DELETE", e.Method)
		assert.Equal(t, "file", e.Header.Get("X-From-File"))

		code, stdout, _ = execute(t, "-config", cfgPath, "-X", "PATCH", server.URL+"/echo")
		require.Equal(t, exitOK, code)
		assert.Equal(t, "PATCH", decodeEcho(t, stdout).Method)
	})
}

func TestRun_Output(t *testing.T) {
	server := newServer(t)
	sum := sha256.Sum256([]byte("hello, world"))
	digest := hex.EncodeToString(sum[:])

	t.Run("file with digest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.txt")
		code, stdout, stderr := execute(t, "-o", path, "-digest", "sha256:"+digest, "-progress", server.URL+"/hello")
		require.Equal(t, exitOK, code)
		assert.Empty(t, stdout)
		assert.Contains(t, stderr, "12/12 bytes")
		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "hello, world", string(b))
	})
	t.Run("digest mismatch", func(t *testing.T) {
		dir := t.TempDir()
		code, _, stderr := execute(t, "-o", filepath.Join(dir, "out.txt"), "-digest", "sha256:00", server.URL+"/hello")
		assert.Equal(t, exitError, code)
		assert.Contains(t, stderr, "kind=validation")
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
	t.Run("indeterminate progress", func(t *testing.T) {
		code, _, stderr := execute(t, "-progress", server.URL+"/gzip")
		require.Equal(t, exitOK, code)
		assert.Contains(t, stderr, "16 bytes")
		assert.NotContains(t, stderr, "%")
	})
}

func TestFormatProgress(t *testing.T) {
	assert.Equal(t, "5/10 bytes   50.0%  2 B/s", formatProgress(httpipe.Progress{
		Transferred: 5,
		Total:       10,
		Percent:     50,
		Rate:        2,
	}))
	assert.Equal(t, "5 bytes  2 B/s", formatProgress(httpipe.Progress{
		Transferred:   5,
		Total:         -1,
		Indeterminate: true,
		Rate:          2,
	}))
}
