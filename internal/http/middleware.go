package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/soloviov/accounthub/internal/http/middlewares"
)

const requestIDHeader = "X-Request-Id"

func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(requestIDHeader)

		if id == "" {
			id = uuid.NewString()
		}

		ctx.Writer.Header().Set(requestIDHeader, id)

		ctx.Set("request_id", id)

		ctx.Next()
	}
}

func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		path := ctx.Request.URL.Path
		method := ctx.Request.Method

		ctx.Next()

		lat := time.Since(start)
		status := ctx.Writer.Status()

		reqID, _ := ctx.Get("request_id")

		attrs := []any{"method", method, "path", path, "status", status, "latency_ms", lat.Milliseconds(), "request_id", reqID}

		// identity is known once RequireAuth has run
		if uid, ok := middlewares.UserIDFromContext(ctx); ok {
			attrs = append(attrs, "user_id", uid)
		}

		log.InfoContext(ctx.Request.Context(), "request", attrs...)
	}
}
