package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

type fakeEndpoint struct {
	method, path string
	init         bool
	noCmd        bool
}

func (f fakeEndpoint) Route() (string, string, http.HandlerFunc) {
	return f.method, f.path, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, f.path)
	}
}

func (f fakeEndpoint) RequiresInit() bool { return f.init }

func (f fakeEndpoint) Command(func() string) *cobra.Command {
	if f.noCmd {
		return nil
	}
	name := f.path[strings.LastIndex(f.path, "/")+1:]
	return &cobra.Command{Use: name}
}

func TestRegistry_BuildCommandsGroups(t *testing.T) {
	r := NewRegistry()
	r.DescribeGroup("documents", "Document commands")
	r.Register(fakeEndpoint{method: "GET", path: "/health"})
	r.Register(fakeEndpoint{method: "POST", path: "/api/documents/upload"})
	r.Register(fakeEndpoint{method: "POST", path: "/api/documents/paginate"})
	r.Register(fakeEndpoint{method: "POST", path: "/api/define"})
	r.Register(fakeEndpoint{method: "GET", path: "/api/hidden", noCmd: true})
	r.AddCommand(&cobra.Command{Use: "wait"})

	root := r.BuildCommands(func() string { return "http://unused" })

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"health", "documents", "define", "wait"} {
		if !names[want] {
			t.Errorf("missing command %q, have %v", want, names)
		}
	}
	if names["hidden"] {
		t.Error("endpoint without a command should be skipped")
	}

	docs, _, err := root.Find([]string{"documents", "paginate"})
	if err != nil || docs.Name() != "paginate" {
		t.Fatalf("documents paginate not found: %v", err)
	}
	if len(r.Endpoints()) != 5 {
		t.Errorf("Endpoints() = %d, want 5", len(r.Endpoints()))
	}
}

func TestRegistry_RegisterRoutesWrapsInit(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeEndpoint{method: "GET", path: "/health"})
	r.Register(fakeEndpoint{method: "POST", path: "/api/define", init: true})

	wrapped := 0
	mux := http.NewServeMux()
	r.RegisterRoutes(mux, func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			wrapped++
			next(w, req)
		}
	})

	for _, tc := range []struct{ method, path string }{{"GET", "/health"}, {"POST", "/api/define"}} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Body.String() != tc.path {
			t.Errorf("%s %s body = %q", tc.method, tc.path, rec.Body.String())
		}
	}
	if wrapped != 1 {
		t.Errorf("init middleware ran %d times, want 1", wrapped)
	}
}

func TestGroupOf(t *testing.T) {
	tests := map[string]string{
		"/api/documents/upload": "documents",
		"/api/define":           "define",
		"/health":               "",
	}
	for path, want := range tests {
		if got := groupOf(path); got != want {
			t.Errorf("groupOf(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", DefaultOutput, false},
		{"text", OutputFormatText, false},
		{" JSON ", OutputFormatJSON, false},
		{"yaml", OutputFormatYAML, false},
		{"xml", DefaultOutput, true},
	}
	for _, tc := range tests {
		got, err := ParseOutputFormat(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseOutputFormat(%q) err = %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func captureOutput(t *testing.T, format string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFormat := stdout, outputFormat
	t.Cleanup(func() { stdout, outputFormat = prevOut, prevFormat })
	stdout = &buf
	if err := SetOutputFormat(format); err != nil {
		t.Fatal(err)
	}
	return &buf
}

func TestPrint(t *testing.T) {
	data := map[string]string{"word": "ledger"}
	human := func(w io.Writer) { fmt.Fprintln(w, "ledger: a book of accounts") }

	buf := captureOutput(t, "text")
	if err := Print(data, human); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "ledger: a book of accounts\n" {
		t.Errorf("text output = %q", got)
	}

	buf = captureOutput(t, "json")
	if err := Print(data, human); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"word": "ledger"`) {
		t.Errorf("json output = %q", buf.String())
	}

	buf = captureOutput(t, "text")
	if err := Print(data, nil); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "word: ledger\n" {
		t.Errorf("text fallback = %q", got)
	}
}

func TestSetOutputFormat_RejectsUnknown(t *testing.T) {
	captureOutput(t, "json")
	if err := SetOutputFormat("toml"); err == nil {
		t.Fatal("expected error")
	}
	if GetOutputFormat() != OutputFormatJSON {
		t.Errorf("format changed to %q", GetOutputFormat())
	}
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			fmt.Fprint(w, `{"status":"ok"}`)
		case "/json-error":
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"word is required"}`)
		default:
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, "upstream down")
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()

	var ok struct{ Status string }
	if err := c.Get(ctx, "/ok", &ok); err != nil || ok.Status != "ok" {
		t.Fatalf("Get /ok = %+v, %v", ok, err)
	}

	var se *StatusError
	err := c.Post(ctx, "/json-error", map[string]string{}, nil)
	if !errors.As(err, &se) || se.StatusCode != 400 || se.Message != "word is required" {
		t.Errorf("json error = %v", err)
	}
	err = c.Get(ctx, "/other", nil)
	if !errors.As(err, &se) || se.StatusCode != 502 || se.Message != "upstream down" {
		t.Errorf("plain error = %v", err)
	}
}
