package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetupTracing(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := setupTracing(&buf)
	if err != nil {
		t.Fatalf("setupTracing: %v", err)
	}
	_, span := otel.Tracer("annad-test").Start(context.Background(), "probe")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(buf.String(), `"Name":"probe"`) {
		t.Errorf("span not exported:\n%s", buf.String())
	}
}
