package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/osmmap/internal/core/domain"
	"github.com/samirrijal/osmmap/internal/pkg/metrics"
	"github.com/samirrijal/osmmap/internal/pkg/telemetry"
)

// toolFunc returns a JSON-encodable result or a domain error.
type toolFunc func(ctx context.Context, req mcp.CallToolRequest) (any, error)

// instrument adapts a toolFunc to mcp-go: it traces, counts and times the
// call and turns domain errors into tool error results, which the client
// sees as isError content rather than a protocol failure.
func instrument(name string, fn toolFunc, log *slog.Logger) server.ToolHandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("tool", name)

	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := telemetry.Tracer().Start(ctx, "mcp."+name)
		span.SetAttributes(telemetry.AttrToolName.String(name))
		defer span.End()

		start := time.Now()
		out, err := fn(ctx, req)
		metrics.ToolDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

		if err != nil {
			kind := errorKind(err)
			metrics.ToolCalls.WithLabelValues(name, kind).Inc()
			span.SetAttributes(telemetry.AttrToolErr.String(kind))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())

			if kind == "invalid" {
				log.Info("tool rejected", "error", err)
				return mcp.NewToolResultError("validation error: " + err.Error()), nil
			}
			log.Warn("tool failed", "kind", kind, "error", err)
			return mcp.NewToolResultError(kind + " error: " + err.Error()), nil
		}

		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			metrics.ToolCalls.WithLabelValues(name, "internal").Inc()
			log.Error("encode tool result", "error", err)
			return mcp.NewToolResultError("internal error: " + err.Error()), nil
		}
		metrics.ToolCalls.WithLabelValues(name, "ok").Inc()
		log.Debug("tool ok", "duration", time.Since(start))
		return mcp.NewToolResultText(string(data)), nil
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrExecution):
		return "execution"
	default:
		return "internal"
	}
}

// bind decodes the call arguments into dst. Any decoding problem is the
// caller's, so it comes back as a ValidationError.
func bind(req mcp.CallToolRequest, dst any) error {
	data, err := json.Marshal(req.GetArguments())
	if err != nil {
		return domain.Invalid("arguments", "%v", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return domain.Invalid(typeErr.Field, "expected %s, got %s", typeErr.Type, typeErr.Value)
		}
		return domain.Invalid("arguments", "%v", err)
	}
	return nil
}
