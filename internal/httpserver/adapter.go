package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gjovs/serverkit/internal/handler"
	"github.com/gjovs/serverkit/pkg/caseconv"
)

// contextKey is where the adapted request context lives on the gin
// context, so global middlewares and the route handler share one state
// bag per request.
const contextKey = "serverkit.context"

// requestContext returns the request's handler context, building it on
// first use: the JSON body, path params and query keys are converted
// from snake_case to camelCase and a fresh state bag is attached.
func requestContext(c *gin.Context) *handler.Context {
	if v, ok := c.Get(contextKey); ok {
		if hc, ok := v.(*handler.Context); ok {
			return hc
		}
	}

	body := map[string]any{}
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		var raw map[string]any
		// A non-JSON or malformed body adapts to an empty body; the
		// handler decides whether that is acceptable.
		if err := c.ShouldBindJSON(&raw); err == nil {
			if converted, ok := caseconv.KeysToCamel(raw).(map[string]any); ok {
				body = converted
			}
		}
	}

	params := make(map[string]string, len(c.Params))
	for _, p := range c.Params {
		params[caseconv.ToCamel(p.Key)] = p.Value
	}

	query := map[string]string{}
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			query[caseconv.ToCamel(key)] = values[0]
		}
	}

	hc := handler.NewContext(body, params, query)
	c.Set(contextKey, hc)
	return hc
}

// writeResult writes a handler result: headers verbatim, body converted
// back to snake_case.
func writeResult(c *gin.Context, res *handler.Result) {
	for key, value := range res.Headers {
		c.Header(key, value)
	}

	status := res.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	if res.Body == nil {
		c.Status(status)
		return
	}
	c.JSON(status, caseconv.KeysToSnake(res.Body))
}

// adapt turns a handler chain into a gin handler. A nil result means
// the handler already wrote a response, or none is needed.
func adapt(h handler.Handler, mws ...handler.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		hc := requestContext(c)

		res, err := handler.Run(c.Request.Context(), hc, h, mws...)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				gin.H{"error": "internal server error"})
			return
		}
		if res == nil {
			return
		}
		writeResult(c, res)
	}
}

// adaptMiddleware turns a handler into a gin middleware: a nil result
// passes through to the next handler, a result responds and aborts.
func adaptMiddleware(mw handler.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		hc := requestContext(c)

		res, err := mw.Handle(c.Request.Context(), hc)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				gin.H{"error": "internal server error"})
			return
		}
		if res == nil {
			c.Next()
			return
		}
		writeResult(c, res)
		c.Abort()
	}
}
