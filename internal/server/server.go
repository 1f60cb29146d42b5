// Package server exposes the engine over HTTP. Each operation is mapped
// through a mapping.Cache, run on an executor.Executor and written back as
// ordered JSON.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/metadata"

	eventbus "github.com/hanpama/gqlexec/internal/eventbus"
	events "github.com/hanpama/gqlexec/internal/events"
	"github.com/hanpama/gqlexec/internal/executor"
	"github.com/hanpama/gqlexec/internal/gqlerrors"
	language "github.com/hanpama/gqlexec/internal/language"
	"github.com/hanpama/gqlexec/internal/logging"
	"github.com/hanpama/gqlexec/internal/mapping"
	reqid "github.com/hanpama/gqlexec/internal/reqid"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-Id"

// requestIDKey is the metadata key resolvers read the request ID from.
const requestIDKey = "graphql-request-id"

// Handler is an http.Handler that serves a GraphQL endpoint.
type Handler struct {
	cache *mapping.Cache
	exec  *executor.Executor
	opt   Options

	forwarded map[string]struct{}
}

type Options struct {
	// Timeout applies when the incoming request context has no deadline.
	// 0 disables it.
	Timeout time.Duration

	// Pretty indents JSON responses.
	Pretty bool

	// MaxBodyBytes limits the size of a POST body. 0 means unlimited.
	MaxBodyBytes int64

	CORS CORSOptions

	// MetadataHeaders lists HTTP headers copied into the outgoing gRPC
	// metadata of the resolver context. Names are case-insensitive.
	MetadataHeaders []string

	// RootValue is the source passed to top-level resolvers.
	RootValue any

	Logger *zap.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithMetadataHeaders(headers ...string) Option {
	return func(o *Options) { o.MetadataHeaders = headers }
}
func WithRootValue(v any) Option      { return func(o *Options) { o.RootValue = v } }
func WithLogger(l *zap.Logger) Option { return func(o *Options) { o.Logger = l } }

// New returns a handler serving operations loaded from cache.
func New(cache *mapping.Cache, exec *executor.Executor, opts ...Option) (*Handler, error) {
	if cache == nil || exec == nil {
		return nil, errors.New("server requires a mapping cache and an executor")
	}
	opt := Options{Timeout: 10 * time.Second}
	for _, f := range opts {
		f(&opt)
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	forwarded := make(map[string]struct{}, len(opt.MetadataHeaders))
	for _, hdr := range opt.MetadataHeaders {
		forwarded[strings.ToLower(hdr)] = struct{}{}
	}
	return &Handler{cache: cache, exec: exec, opt: opt, forwarded: forwarded}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	rid, ok := reqid.Parse(r.Header.Get(RequestIDHeader))
	if ok {
		ctx = reqid.WithID(ctx, rid)
	} else {
		ctx, rid = reqid.NewContext(ctx)
	}
	w.Header().Set(RequestIDHeader, rid.String())

	status := http.StatusOK
	operations := 0
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Operations: operations, Duration: time.Since(start)})
	}()

	if h.opt.CORS.enabled() {
		h.opt.CORS.apply(w, r)
	}
	switch r.Method {
	case http.MethodGet, http.MethodPost:
	case http.MethodOptions:
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	default:
		status = http.StatusMethodNotAllowed
		h.writeJSON(w, status, errorResponse("method not allowed"))
		return
	}

	reqs, batch, err := parseRequest(w, r, h.opt.MaxBodyBytes)
	if err != nil {
		var re *requestError
		if !errors.As(err, &re) {
			re = &requestError{status: http.StatusBadRequest, message: err.Error()}
		}
		status = re.status
		h.writeJSON(w, status, errorResponse(re.message))
		return
	}
	operations = len(reqs)

	ctx = metadata.NewOutgoingContext(ctx, h.outgoingMetadata(r, rid))
	readOnly := r.Method == http.MethodGet
	out := make([]response, len(reqs))
	for i, req := range reqs {
		out[i] = h.executeOne(ctx, req, readOnly)
	}

	if batch {
		h.writeJSON(w, status, out)
		return
	}
	if out[0].notAllowed {
		status = http.StatusMethodNotAllowed
	}
	h.writeJSON(w, status, out[0])
}

func (h *Handler) outgoingMetadata(r *http.Request, rid reqid.ID) metadata.MD {
	md := metadata.MD{}
	for k, v := range r.Header {
		if _, ok := h.forwarded[strings.ToLower(k)]; ok {
			md[strings.ToLower(k)] = v
		}
	}
	md[requestIDKey] = []string{rid.String()}
	return md
}

func (h *Handler) executeOne(ctx context.Context, req GraphQLRequest, readOnly bool) response {
	rid, _ := reqid.FromContext(ctx)
	logger := h.opt.Logger.With(logging.WithRequestID(rid.String()))

	op, errs := h.cache.Load(req.Query, req.OperationName)
	if len(errs) > 0 {
		logger.Debug("request rejected",
			zap.String("operation", req.OperationName),
			zap.String("first", errs[0].Message),
			zap.Int("errors", len(errs)),
		)
		return toResponse(&executor.ExecutionResult{Errors: errs})
	}
	if readOnly && op.Kind != language.Query {
		return response{
			Errors:     []responseError{{Message: "only query operations are allowed over GET"}},
			notAllowed: true,
		}
	}

	opType := string(op.Kind)
	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{Query: req.Query, OperationName: op.Name, OperationType: opType})
	result := h.exec.Execute(ctx, op, req.Variables, h.opt.RootValue)
	duration := time.Since(start)
	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         req.Query,
		OperationName: op.Name,
		OperationType: opType,
		Errors:        result.Errors,
		Duration:      duration,
	})
	logger.Debug("operation executed",
		zap.String("operation", op.Name),
		zap.String("type", opType),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("duration", duration),
	)
	return toResponse(result)
}

type responseError struct {
	Message    string              `json:"message"`
	Locations  []language.Location `json:"locations,omitempty"`
	Path       gqlerrors.Path      `json:"path,omitempty"`
	Extensions map[string]any      `json:"extensions,omitempty"`
}

type response struct {
	Data   *executor.OutputObjectScope `json:"data,omitempty"`
	Errors []responseError             `json:"errors,omitempty"`

	notAllowed bool
}

func errorResponse(message string) response {
	return response{Errors: []responseError{{Message: message}}}
}

// toResponse copies res, exposing each error kind as the "code" extension.
func toResponse(res *executor.ExecutionResult) response {
	out := response{Data: res.Data}
	for _, e := range res.Errors {
		var ext map[string]any
		if len(e.Extensions) > 0 || e.Kind != "" {
			ext = make(map[string]any, len(e.Extensions)+1)
			for k, v := range e.Extensions {
				ext[k] = v
			}
			if e.Kind != "" {
				ext["code"] = string(e.Kind)
			}
		}
		out.Errors = append(out.Errors, responseError{
			Message:    e.Message,
			Locations:  e.Locations,
			Path:       e.Path,
			Extensions: ext,
		})
	}
	return out
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if h.opt.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		h.opt.Logger.Warn("failed to write response", zap.Error(err))
	}
}
