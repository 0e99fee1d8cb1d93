package middleware

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/errorspkg"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/web"
)

// Recovery recovers from handler panics, logs them with the request logger
// and responds with 500.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		zerolog.Ctx(c.Request.Context()).Error().
			Interface("panic", recovered).
			Str("path", c.Request.URL.Path).
			Msg("handler panicked")

		c.AbortWithStatusJSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
	})
}
