package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestStartSpanMintsTrace(t *testing.T) {
	tracer := New("test", nil)
	defer tracer.Close()

	parent, ctx := tracer.StartSpan(context.Background(), "parent")
	assert.NotEmpty(t, parent.TraceID)
	assert.NotEmpty(t, parent.SpanID)
	assert.Empty(t, parent.ParentID)
	assert.Equal(t, "test", parent.Service)

	child, _ := tracer.StartSpan(ctx, "child")
	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentID)
	assert.NotEqual(t, parent.SpanID, child.SpanID)
}

func TestSpanErrorDefaultsStatus(t *testing.T) {
	tracer := New("test", nil)
	defer tracer.Close()

	span, _ := tracer.StartSpan(context.Background(), "op")
	span.SetError(errors.New("boom"))
	assert.Equal(t, 500, span.Status)

	span, _ = tracer.StartSpan(context.Background(), "op")
	span.SetStatus(404)
	span.SetError(errors.New("missing"))
	assert.Equal(t, 404, span.Status)
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tracer := New("test", nil)
	defer tracer.Close()

	var gotTrace TraceID
	var gotSpan SpanID

	router := gin.New()
	router.Use(HTTPMiddleware(tracer))
	router.GET("/editors/:id", func(c *gin.Context) {
		gotTrace = GetTraceID(c.Request.Context())
		gotSpan = GetSpanID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	t.Run("mints trace when none supplied", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/editors/ed_1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.NotEmpty(t, w.Header().Get(HeaderTraceID))
		assert.NotEmpty(t, w.Header().Get(HeaderSpanID))
		assert.Equal(t, TraceID(w.Header().Get(HeaderTraceID)), gotTrace)
		assert.NotEmpty(t, gotSpan)
	})

	t.Run("honors inbound trace header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/editors/ed_2", nil)
		req.Header.Set(HeaderTraceID, "req_host_trace")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "req_host_trace", w.Header().Get(HeaderTraceID))
		assert.Equal(t, TraceID("req_host_trace"), gotTrace)
	})
}

func TestSubmitAfterClose(t *testing.T) {
	tracer := New("test", nil)
	span, _ := tracer.StartSpan(context.Background(), "late")
	tracer.Close()
	tracer.Close()

	span.Finish()
	tracer.Submit(span)
}
