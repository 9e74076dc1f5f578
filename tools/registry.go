// Package tools provides a metadata-driven registry for MCP tool definitions.
// Tools are defined declaratively as ToolSpecs and bound to typed handlers;
// the registry validates arguments against a schema inferred from the handler's
// argument type before any handler runs.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	apperrors "github.com/olgasafonova/benkyokai-mcp-server/internal/errors"
	"github.com/olgasafonova/benkyokai-mcp-server/metrics"
	"github.com/olgasafonova/benkyokai-mcp-server/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ToolSpec defines a tool's metadata for declarative registration.
type ToolSpec struct {
	// Name is the MCP tool name (e.g., "github_get_pull_requests")
	Name string

	// Method is the handler method name (e.g., "PullRequests")
	Method string

	// Description is the tool description shown to LLMs
	Description string

	// Title is the human-readable tool title for annotations
	Title string

	// Category groups tools logically (math, address, github)
	Category string

	// ReadOnly indicates the tool doesn't modify remote state
	ReadOnly bool

	// Destructive indicates the tool can delete or overwrite data
	Destructive bool

	// Idempotent indicates repeated calls have the same effect
	Idempotent bool

	// OpenWorld indicates the tool accesses external resources
	OpenWorld bool

	// LogArgs lists argument names included in the "Tool executed" log line
	LogArgs []string

	// Schema tightens the inferred input schema (bounds, enums, patterns, defaults)
	Schema func(*jsonschema.Schema)
}

type entry struct {
	spec     ToolSpec
	schema   *jsonschema.Schema
	props    map[string]*jsonschema.Resolved
	required []string
	call     func(ctx context.Context, raw json.RawMessage) (string, error)
}

// Registry maps tool names to validated, instrumented handlers.
// Registration happens at start-up; once the first call is dispatched the
// contents are fixed and further registrations fail.
type Registry struct {
	entries        map[string]*entry
	order          []string
	logger         *slog.Logger
	strictUpstream bool
	sealed         atomic.Bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for execution and failure logs.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithStrictUpstream makes Invoke return upstream failures as errors
// instead of descriptive success strings.
func WithStrictUpstream(strict bool) Option {
	return func(r *Registry) {
		r.strictUpstream = strict
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool whose input schema is inferred from Args.
// Handlers report upstream failures as *errors.UpstreamError so the registry
// can apply its error policy.
func Register[Args any](r *Registry, spec ToolSpec, handler func(context.Context, Args) (string, error)) error {
	if r.sealed.Load() {
		return fmt.Errorf("cannot register %s: registry is sealed", spec.Name)
	}
	if spec.Name == "" {
		return errors.New("tool name must not be empty")
	}
	if _, exists := r.entries[spec.Name]; exists {
		return apperrors.NewDuplicateNameError("tool", spec.Name)
	}

	schema, err := jsonschema.For[Args](nil)
	if err != nil {
		return fmt.Errorf("inferring schema for %s: %w", spec.Name, err)
	}
	// Unknown properties are ignored rather than rejected.
	schema.AdditionalProperties = nil
	if spec.Description != "" && schema.Description == "" {
		schema.Description = spec.Description
	}
	if spec.Schema != nil {
		spec.Schema(schema)
	}

	props := make(map[string]*jsonschema.Resolved, len(schema.Properties))
	for name, prop := range schema.Properties {
		resolved, err := prop.Resolve(nil)
		if err != nil {
			return fmt.Errorf("resolving schema for %s.%s: %w", spec.Name, name, err)
		}
		props[name] = resolved
	}

	r.entries[spec.Name] = &entry{
		spec:     spec,
		schema:   schema,
		props:    props,
		required: append([]string(nil), schema.Required...),
		call: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args Args
			if err := json.Unmarshal(raw, &args); err != nil {
				field := ""
				var typeErr *json.UnmarshalTypeError
				if errors.As(err, &typeErr) {
					field = typeErr.Field
				}
				return "", apperrors.NewValidationError(field, "", err.Error())
			}
			return handler(ctx, args)
		},
	}
	r.order = append(r.order, spec.Name)
	return nil
}

// MustRegister is Register for start-up wiring, where a failure is a programming error.
func MustRegister[Args any](r *Registry, spec ToolSpec, handler func(context.Context, Args) (string, error)) {
	if err := Register(r, spec, handler); err != nil {
		panic(err)
	}
}

// Tools returns the registered specs in registration order.
func (r *Registry) Tools() []ToolSpec {
	specs := make([]ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.entries[name].spec)
	}
	return specs
}

// InputSchema returns the effective input schema for a tool, or nil.
func (r *Registry) InputSchema(name string) *jsonschema.Schema {
	if e, ok := r.entries[name]; ok {
		return e.schema
	}
	return nil
}

// Validate checks raw arguments against the tool's schema and returns them
// with defaults applied.
func (r *Registry) Validate(name string, raw json.RawMessage) (json.RawMessage, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, apperrors.NewUnknownToolError(name)
	}
	args, _, err := e.validate(raw)
	return args, err
}

// validate returns the normalized arguments and the decoded argument map.
func (e *entry) validate(raw json.RawMessage) (json.RawMessage, map[string]any, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		trimmed = "{}"
	}

	args, err := decodeObject(trimmed)
	if err != nil {
		return nil, nil, apperrors.NewValidationError("", "", "arguments must be a JSON object")
	}

	for _, name := range e.required {
		if _, ok := args[name]; !ok {
			return nil, nil, apperrors.NewValidationError(name, "", "required")
		}
	}

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop, known := e.props[name]
		if !known {
			delete(args, name)
			continue
		}
		value, err := plainNumbers(args[name])
		if err != nil {
			return nil, nil, apperrors.NewValidationError(name, renderValue(args[name]), err.Error())
		}
		args[name] = value
		if err := prop.Validate(value); err != nil {
			return nil, nil, apperrors.NewValidationError(name, renderValue(args[name]), constraintText(err))
		}
	}

	for name, prop := range e.schema.Properties {
		if _, ok := args[name]; ok || len(prop.Default) == 0 {
			continue
		}
		var v any
		if err := json.Unmarshal(prop.Default, &v); err == nil {
			args[name] = v
		}
	}

	normalized, err := json.Marshal(args)
	if err != nil {
		return nil, nil, apperrors.NewValidationError("", "", err.Error())
	}
	return normalized, args, nil
}

// Invoke validates the arguments and runs the named tool.
//
// Validation and unknown-tool errors are returned before any handler runs.
// An *errors.UpstreamError from the handler is converted to a successful
// result holding its message, unless the registry is strict.
func (r *Registry) Invoke(ctx context.Context, name string, raw json.RawMessage) (result string, err error) {
	e, ok := r.entries[name]
	if !ok {
		metrics.RecordToolCall("unknown", 0, metrics.StatusUnknownTool)
		return "", apperrors.NewUnknownToolError(name)
	}
	r.sealed.Store(true)

	ctx, span := tracing.StartSpan(ctx, "mcp.tool."+name)
	defer span.End()
	tracing.AddToolAttributes(span, name, e.spec.Category)
	span.SetAttributes(attribute.Bool("mcp.tool.readonly", e.spec.ReadOnly))

	metrics.ToolCallsInFlight.WithLabelValues(name).Inc()
	defer metrics.ToolCallsInFlight.WithLabelValues(name).Dec()

	start := time.Now()
	status := metrics.StatusSuccess
	defer func() {
		if rec := recover(); rec != nil {
			r.recoverPanic(name, rec)
			status = metrics.StatusError
			result, err = "", fmt.Errorf("%s failed: internal error", name)
			span.SetStatus(codes.Error, "panic")
		}
		duration := time.Since(start).Seconds()
		span.SetAttributes(attribute.Float64("mcp.tool.duration_seconds", duration))
		metrics.RecordToolCall(name, duration, status)
	}()

	args, fields, err := e.validate(raw)
	if err != nil {
		status = metrics.StatusValidationError
		tracing.RecordError(span, err)
		return "", err
	}

	result, err = e.call(ctx, args)
	if err != nil {
		var upstream *apperrors.UpstreamError
		if errors.As(err, &upstream) {
			status = metrics.StatusUpstreamError
			tracing.RecordError(span, err)
			r.logger.Warn("Upstream call failed",
				"tool", name,
				"service", upstream.Service,
				"status_code", upstream.StatusCode,
				"error", upstream.Detail)
			if r.strictUpstream {
				return "", upstream
			}
			return upstream.Error(), nil
		}
		if apperrors.IsValidation(err) {
			status = metrics.StatusValidationError
			tracing.RecordError(span, err)
			return "", err
		}
		status = metrics.StatusError
		tracing.RecordError(span, err)
		return "", fmt.Errorf("%s failed: %w", name, err)
	}

	span.SetStatus(codes.Ok, "")
	r.logExecution(e.spec, fields, result)
	return result, nil
}

// recoverPanic logs a recovered handler panic.
func (r *Registry) recoverPanic(toolName string, rec any) {
	metrics.PanicsRecovered.WithLabelValues(toolName).Inc()
	r.logger.Error("Panic recovered",
		"tool", toolName,
		"panic", rec,
		"stack", string(debug.Stack()))
}

// logExecution logs tool execution details.
func (r *Registry) logExecution(spec ToolSpec, args map[string]any, result string) {
	attrs := []any{"tool", spec.Name, "category", spec.Category}
	for _, name := range spec.LogArgs {
		if v, ok := args[name]; ok {
			attrs = append(attrs, name, v)
		}
	}
	attrs = append(attrs, "result_bytes", len(result))
	r.logger.Info("Tool executed", attrs...)
}

// AttachMCP exposes every registered tool on an MCP server.
// Validation and unknown-tool failures become error results carrying the message.
func (r *Registry) AttachMCP(server *mcp.Server) {
	for _, name := range r.order {
		e := r.entries[name]
		server.AddTool(buildTool(e.spec, e.schema), func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var raw json.RawMessage
			if req != nil && req.Params != nil {
				raw = req.Params.Arguments
			}
			out, err := r.Invoke(ctx, name, raw)
			if err != nil {
				return &mcp.CallToolResult{
					Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
					IsError: true,
				}, nil
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: out}},
			}, nil
		})
	}
	r.logger.Info("Registered all tools", "count", len(r.order))
}

// buildTool creates an mcp.Tool from a ToolSpec.
func buildTool(spec ToolSpec, schema *jsonschema.Schema) *mcp.Tool {
	annotations := &mcp.ToolAnnotations{
		Title:          spec.Title,
		ReadOnlyHint:   spec.ReadOnly,
		IdempotentHint: spec.Idempotent,
	}
	if spec.Destructive {
		annotations.DestructiveHint = ptr(true)
	} else {
		annotations.DestructiveHint = ptr(false)
	}
	if spec.OpenWorld {
		annotations.OpenWorldHint = ptr(true)
	}

	return &mcp.Tool{
		Name:        spec.Name,
		Title:       spec.Title,
		Description: spec.Description,
		InputSchema: schema,
		Annotations: annotations,
	}
}

// renderValue formats an argument value for a ValidationError.
// decodeObject parses a JSON object keeping numbers as json.Number, so a value
// too large for float64 can be reported against its property.
func decodeObject(data string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()

	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, err
	}
	if args == nil {
		return nil, errors.New("not an object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after object")
	}
	return args, nil
}

// plainNumbers converts every json.Number in v to float64.
func plainNumbers(v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return nil, fmt.Errorf("number %s is out of range", t)
		}
		return f, nil
	case []any:
		for i := range t {
			n, err := plainNumbers(t[i])
			if err != nil {
				return nil, err
			}
			t[i] = n
		}
	case map[string]any:
		for k := range t {
			n, err := plainNumbers(t[k])
			if err != nil {
				return nil, err
			}
			t[k] = n
		}
	}
	return v, nil
}

func renderValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// constraintText strips the validator's instance-location prefix.
func constraintText(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 && strings.HasPrefix(msg, "validating") {
		return msg[i+2:]
	}
	return msg
}

// ptr is a helper to create a pointer to a value.
func ptr[T any](v T) *T {
	return &v
}
