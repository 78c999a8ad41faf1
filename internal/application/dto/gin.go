package dto

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/authcore/pkg/constants"
)

// TraceID returns the trace id of the request span, or the request id when tracing is off.
func TraceID(c *gin.Context) string {
	ctx := c.Request.Context()
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	if id, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// SendSuccess writes a successful envelope with status.
func SendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse(data, TraceID(c)))
}

// SendError maps err onto a status and writes the error envelope.
func SendError(c *gin.Context, err error) {
	status, body := ErrorResponse(err, TraceID(c))
	c.JSON(status, body)
}

//Personal.AI order the ending
