// Package sandbox is a client for a remote, isolated Python interpreter.
// Source code is posted to the interpreter service and executed there; it is
// never run in this process.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/searchmesh/provider"
)

// DefaultRunTimeout bounds one execution on the remote side.
const DefaultRunTimeout = 60 * time.Second

// Result is one rich output of an execution (the value of the last
// expression, a displayed figure).
type Result struct {
	Text         string          `json:"text,omitempty"`
	IsMainResult bool            `json:"is_main_result,omitempty"`
	PNG          string          `json:"png,omitempty"`
	Chart        json.RawMessage `json:"chart,omitempty"`
}

// ExecutionError is a structured exception raised by the executed code.
type ExecutionError struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Traceback string `json:"traceback,omitempty"`
}

func (e *ExecutionError) String() string {
	if e.Name == "" {
		return e.Value
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Value)
}

// Execution is the captured outcome of one run.
type Execution struct {
	Stdout  []string        `json:"stdout"`
	Stderr  []string        `json:"stderr"`
	Results []Result        `json:"results"`
	Error   *ExecutionError `json:"error,omitempty"`
}

// Message concatenates result texts, stdout, stderr and the error line, in
// that order, separated by newlines.
func (e *Execution) Message() string {
	var b strings.Builder
	for _, r := range e.Results {
		b.WriteString(r.Text)
		b.WriteByte('\n')
	}
	if len(e.Stdout) > 0 {
		b.WriteString(strings.Join(e.Stdout, "\n"))
		b.WriteByte('\n')
	}
	if len(e.Stderr) > 0 {
		b.WriteString(strings.Join(e.Stderr, "\n"))
		b.WriteByte('\n')
	}
	if e.Error != nil {
		b.WriteString("Error: ")
		b.WriteString(e.Error.String())
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

// Chart returns the chart of the first result, or nil.
func (e *Execution) Chart() json.RawMessage {
	if len(e.Results) == 0 {
		return nil
	}
	return e.Results[0].Chart
}

// Options configure a Client.
type Options struct {
	TemplateID string
	RunTimeout time.Duration
}

// Client runs code on the interpreter service.
type Client struct {
	http *provider.Client
	opts Options
}

// New creates a client for the service at endpoint, authenticated with
// apiKey and running code in the given sandbox template.
func New(endpoint, apiKey, templateID string, optFns ...func(o *provider.Options)) *Client {
	opts := append([]func(o *provider.Options){
		provider.WithBaseURL(endpoint),
		provider.WithHeader("X-API-Key", apiKey),
	}, optFns...)
	return &Client{
		http: provider.NewClient("sandbox", opts...),
		opts: Options{TemplateID: templateID, RunTimeout: DefaultRunTimeout},
	}
}

// WithRunTimeout overrides the per-run timeout.
func (c *Client) WithRunTimeout(d time.Duration) *Client {
	cp := *c
	cp.opts.RunTimeout = d
	return &cp
}

type runRequest struct {
	TemplateID string `json:"template_id"`
	Code       string `json:"code"`
	Language   string `json:"language"`
	TimeoutMS  int64  `json:"timeout_ms"`
}

// RunCode executes Python source. An exception raised by the code is not a
// transport failure: it is reported in Execution.Error with a nil error.
func (c *Client) RunCode(ctx context.Context, code string) (*Execution, error) {
	req := runRequest{
		TemplateID: c.opts.TemplateID,
		Code:       code,
		Language:   "python",
		TimeoutMS:  c.opts.RunTimeout.Milliseconds(),
	}
	var out Execution
	if err := c.http.Post(ctx, "/execute", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
