package http

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows browser calls from the configured origins. "*" allows any
// origin. Preflights from other origins are rejected with a JSON 403.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", userIDHeader, requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	if len(origins) == 0 {
		// Nothing is allowed; still answer preflights with JSON.
		return func(c *gin.Context) {
			if c.GetHeader("Origin") != "" && isPreflight(c.Request) {
				writeError(c, http.StatusForbidden, codeForbidden, "forbidden")
				return
			}
			c.Next()
		}
	}

	allowed := cors.New(cfg)
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && isPreflight(c.Request) && !cfg.AllowAllOrigins && !slices.Contains(origins, origin) {
			writeError(c, http.StatusForbidden, codeForbidden, "forbidden")
			return
		}
		allowed(c)
	}
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}
