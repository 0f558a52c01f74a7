package tracing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsPayloads(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/statements/:id"),
		attribute.String("db.statement", "SELECT 1"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorFlattensChain(t *testing.T) {
	base := errors.New("boom")
	wrapped := fmt.Errorf("approve: %w", base)
	safe := SafeError(wrapped)
	assert.EqualError(t, safe, "approve: boom")
	assert.False(t, errors.Is(safe, base))
	assert.Nil(t, SafeError(nil))
}

func TestSpanNameIncludesRoute(t *testing.T) {
	assert.Equal(t, "HTTP POST", spanName("post", ""))
	assert.Equal(t, "HTTP POST /api/statements/:id/approve", spanName("post", "/api/statements/:id/approve"))
}
