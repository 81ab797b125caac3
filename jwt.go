/*
 *    Copyright 2025 Jeff Galyan
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package numbat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// jwtClaimsKey is the context key for JWT claims storage.
type jwtClaimsKey struct{}

var jwtContextKey = jwtClaimsKey{}

// WithJWTClaims stores JWT claims into a context.
func WithJWTClaims(ctx context.Context, claims jwt.MapClaims) context.Context {
	return context.WithValue(ctx, jwtContextKey, claims)
}

// JWTClaims retrieves JWT claims from context if present.
func JWTClaims(ctx context.Context) (jwt.MapClaims, bool) {
	v := ctx.Value(jwtContextKey)
	if v == nil {
		return nil, false
	}
	mc, ok := v.(jwt.MapClaims)
	return mc, ok
}

// AuthConfig configures the RequireAuth handler.
// Token returns the current token, with or without a "Bearer " prefix.
// If LoginPath is set, a denied navigation is redirected there.
type AuthConfig struct {
	Token     func() string
	Keyfunc   jwt.Keyfunc
	Issuer    string
	Audience  string
	Skew      time.Duration
	LoginPath string
	Logger    *slog.Logger
}

// RequireAuth guards the rest of the chain behind a valid JWT. On success the
// claims are stored in the dispatch context; otherwise the chain stops.
func RequireAuth(cfg AuthConfig) Handler {
	if cfg.Skew == 0 {
		cfg.Skew = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512", "RS256", "RS384", "RS512", "ES256", "EdDSA"}),
		jwt.WithLeeway(cfg.Skew),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(opts...)

	return func(c *Context, next func()) {
		deny := func(reason string) {
			var u string
			if c != nil {
				u = c.URL
			}
			logger.Debug("navigation denied", slog.String("url", u), slog.String("reason", reason))
			if cfg.LoginPath != "" {
				c.Redirect(cfg.LoginPath)
			}
		}

		var tokStr string
		if cfg.Token != nil {
			tokStr = strings.TrimSpace(cfg.Token())
		}
		if len(tokStr) > 7 && strings.EqualFold(tokStr[:7], "Bearer ") {
			tokStr = strings.TrimSpace(tokStr[7:])
		}
		if tokStr == "" {
			deny("missing token")
			return
		}
		if cfg.Keyfunc == nil {
			deny("no key configured")
			return
		}

		tok, err := parser.ParseWithClaims(tokStr, jwt.MapClaims{}, cfg.Keyfunc)
		if err != nil {
			deny("token parse/verify failed: " + err.Error())
			return
		}
		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok || !tok.Valid {
			deny("invalid token claims")
			return
		}

		if c != nil {
			c.SetContext(WithJWTClaims(c.Context(), claims))
		}
		if next != nil {
			next()
		}
	}
}
