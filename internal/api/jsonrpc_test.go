package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/startlinker/rankfeed/pkg/config"
	"github.com/startlinker/rankfeed/pkg/telemetry"
)

func TestHandleParentsHandlerSpans(t *testing.T) {
	// In-memory span recorder; Init picks up the global provider since
	// no exporter is configured
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	shutdown, err := telemetry.Init(&config.TelemetryConfig{
		Enabled:     true,
		ServiceName: "rankfeed-test",
	})
	if err != nil {
		t.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer shutdown()

	gin.SetMode(gin.TestMode)
	handler := &JSONRPCHandler{
		methods: make(map[string]MethodHandler),
		logger:  zap.NewNop(),
	}
	handler.RegisterMethod("test.traced", func(c *gin.Context, _ json.RawMessage) (interface{}, error) {
		_, span := telemetry.StartSpan(c.Request.Context(), "test.inner")
		span.End()
		return "ok", nil
	})

	engine := gin.New()
	engine.POST("/", handler.Handle)

	body := `{"jsonrpc":"2.0","id":1,"method":"test.traced","params":{}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("request failed with status %d", w.Code)
	}

	var inner, outer sdktrace.ReadOnlySpan
	for _, span := range recorder.Ended() {
		switch span.Name() {
		case "test.inner":
			inner = span
		case "jsonrpc.handle":
			outer = span
		}
	}
	if inner == nil || outer == nil {
		t.Fatalf("expected both spans to be recorded, got inner=%v outer=%v", inner, outer)
	}

	if inner.Parent().SpanID() != outer.SpanContext().SpanID() {
		t.Error("handler span should be a child of jsonrpc.handle")
	}
	if inner.SpanContext().TraceID() != outer.SpanContext().TraceID() {
		t.Error("handler span should share the request trace")
	}
}
