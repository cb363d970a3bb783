package correlation

import (
	"context"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Inbound ids longer than this are replaced rather than propagated.
const maxIDLength = 128

type key struct{}

// ExtractCorrelationID returns the id carried by ctx, or "".
func ExtractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(key{}).(string)
	return id
}

// ContextWithCorrelationID attaches id to ctx. Blank or oversized ids are dropped.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > maxIDLength {
		return ctx
	}
	return context.WithValue(ctx, key{}, id)
}

// EnsureCorrelationID keeps an existing id or generates a bare ULID.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if id := ExtractCorrelationID(ctx); id != "" {
		return ctx, id
	}
	id := ulid.Make().String()
	return ContextWithCorrelationID(ctx, id), id
}

// StartRun names one ingest or calculate pass over a cycle. An id supplied
// by the caller is kept so an upload and its follow-up calculation share it;
// otherwise the id reads like "calculate-2024-02-01HV...".
func StartRun(ctx context.Context, op string, year, month int) (context.Context, string) {
	if id := ExtractCorrelationID(ctx); id != "" {
		return ctx, id
	}
	id := fmt.Sprintf("%s-%04d-%02d-%s", op, year, month, ulid.Make().String())
	return ContextWithCorrelationID(ctx, id), id
}
