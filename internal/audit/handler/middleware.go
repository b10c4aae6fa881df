package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"leadpipe_backend/internal/events"
	"leadpipe_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	apiPrefix      = "/api/v1/"
	maxCapturedLen = 64 << 10
)

var redactedFields = []string{"password", "token"}

// captureWriter keeps the head of the response body so the created
// entity's id can be read back after the handler ran.
type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if room := maxCapturedLen - w.buf.Len(); room > 0 {
		if len(b) > room {
			w.buf.Write(b[:room])
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Middleware publishes an ActionPerformed event for every mutating request
// that completed with a 2xx status. Publishing is asynchronous and never
// alters the response.
func Middleware(bus events.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isMutation(c.Request.Method) {
			c.Next()
			return
		}

		body := readBody(c)

		var capture *captureWriter
		if c.Param("id") == "" {
			capture = &captureWriter{ResponseWriter: c.Writer}
			c.Writer = capture
		}

		c.Next()

		status := c.Writer.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return
		}
		id := httpkit.GetIdentity(c)
		if !id.IsAuthenticated() {
			return
		}

		entityType, action := describe(c.FullPath(), c.Request.Method)
		entityID := c.Param("id")
		if entityID == "" && capture != nil {
			entityID = idFromPayload(capture.buf.Bytes())
		}

		bus.Publish(c.Request.Context(), events.ActionPerformed{
			BaseEvent:      events.NewBaseEvent(),
			OrganizationID: id.OrganizationID(),
			ActorID:        id.UserID(),
			Action:         action,
			EntityType:     entityType,
			EntityID:       entityID,
			Metadata:       redact(body),
			IP:             c.ClientIP(),
			UserAgent:      c.Request.UserAgent(),
		})
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func readBody(c *gin.Context) []byte {
	if c.Request.Body == nil {
		return nil
	}
	raw, err := io.ReadAll(c.Request.Body)
	_ = c.Request.Body.Close()
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) > maxCapturedLen {
		return nil
	}
	return raw
}

// describe derives (entity type, action) from the matched route, e.g.
// "/api/v1/leads/:id/transition" -> ("lead", "transition") and
// "/api/v1/stages" POST -> ("stage", "create").
func describe(fullPath, method string) (string, string) {
	rest := strings.TrimPrefix(fullPath, apiPrefix)
	segments := strings.Split(strings.Trim(rest, "/"), "/")

	entityType := singular(segments[0])
	if len(segments) >= 3 && strings.HasPrefix(segments[1], ":") {
		return entityType, strings.ReplaceAll(segments[2], "-", "_")
	}

	switch method {
	case http.MethodPost:
		return entityType, "create"
	case http.MethodDelete:
		return entityType, "delete"
	default:
		return entityType, "update"
	}
}

func singular(segment string) string {
	name := strings.ReplaceAll(segment, "-", "_")
	switch {
	case strings.HasSuffix(name, "ies"):
		return strings.TrimSuffix(name, "ies") + "y"
	case strings.HasSuffix(name, "s"):
		return strings.TrimSuffix(name, "s")
	}
	return name
}

func idFromPayload(payload []byte) string {
	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil || len(probe.ID) == 0 {
		return ""
	}
	var id uuid.UUID
	if err := json.Unmarshal(probe.ID, &id); err != nil {
		return ""
	}
	return id.String()
}

// redact drops credentials from a JSON object body. Anything that is not an
// object is not recorded.
func redact(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil
	}
	for _, name := range redactedFields {
		delete(fields, name)
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return out
}
