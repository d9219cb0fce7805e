// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/helmgate/helmgate/internal/auth"
	"github.com/helmgate/helmgate/internal/observability"
	"github.com/helmgate/helmgate/pkg/errutil"
)

// Context keys set by requireAuth.
const (
	ctxAccountID = "accountID"
	ctxRole      = "role"
)

// instrument records per-request latency labeled by matched route and
// response status. Requests that match no route are labeled "unmatched"
// so path cardinality stays bounded.
func (h *Handler) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		elapsed := time.Since(start).Seconds()
		h.count(func(m *observability.Metrics) {
			m.RequestDuration.WithLabelValues(route, status).Observe(elapsed)
		})
	}
}

// requireAuth verifies the access token from the Authorization header
// or the access cookie and stores the account identity on the context.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			token, _ = c.Cookie(accessCookie) //nolint:errcheck // Missing cookie handled below
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":  auth.CodeUnauthorized,
				"error": "authentication required",
			})
			return
		}

		claims, err := h.codec.VerifyAccessToken(token)
		if err != nil {
			h.abortUnauthorized(c, err)
			return
		}

		accountID, err := ulid.Parse(claims.AccountID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":  auth.CodeInvalidToken,
				"error": "malformed token payload",
			})
			return
		}

		c.Set(ctxAccountID, accountID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

func (h *Handler) abortUnauthorized(c *gin.Context, err error) {
	code := auth.CodeInvalidToken
	msg := "token is invalid"
	if errutil.Code(err) == auth.CodeExpiredToken {
		code = auth.CodeExpiredToken
		msg = "token has expired"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": code, "error": msg})
}

// mustAccountID returns the account ID set by requireAuth. Only valid
// on routes behind that middleware.
func mustAccountID(c *gin.Context) ulid.ULID {
	return c.MustGet(ctxAccountID).(ulid.ULID)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
