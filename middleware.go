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
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"
)

var idCounter uint64

func randomID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s-%d", time.Now().UTC().Format("20060102150405.000000000"), atomic.AddUint64(&idCounter, 1))
	}
	return hex.EncodeToString(b)
}

// Do adapts a function taking no arguments. The chain always continues.
func Do(fn func()) Handler {
	return func(_ *Context, next func()) {
		fn()
		if next != nil {
			next()
		}
	}
}

// Terminal runs fn and ends the chain.
func Terminal(fn func(*Context)) Handler {
	return func(c *Context, _ func()) { fn(c) }
}

// LoggerConfig configures the Logger handler.
type LoggerConfig struct {
	// Logger is the slog.Logger used for output. nil uses slog.Default().
	Logger *slog.Logger

	// Sanitize enables redaction of sensitive parameters in log output.
	// nil means no sanitization.
	Sanitize *SanitizeConfig
}

// Logger tags the dispatch with a navigation id and logs it once the rest of
// the chain has returned.
func Logger(cfg LoggerConfig) Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var san *Sanitizer
	if cfg.Sanitize != nil {
		san = NewSanitizer(*cfg.Sanitize)
	}

	return func(c *Context, next func()) {
		id := randomID()
		var u string
		var params Params
		if c != nil {
			c.SetContext(WithNavigationID(c.Context(), id))
			u, params = c.URL, c.Params
		}
		start := time.Now()
		if next != nil {
			next()
		}
		logger.Info("navigation",
			slog.String("id", id),
			slog.String("url", san.Path(u, params)),
			slog.String("duration", time.Since(start).String()),
		)
	}
}

// Recover stops panics raised by the handlers that follow it and logs them.
func Recover(logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *Context, next func()) {
		defer func() {
			if r := recover(); r != nil {
				var u string
				if c != nil {
					u = c.URL
				}
				logger.Error("panic recovered", slog.Any("err", r), slog.String("url", u), slog.String("stack", string(debug.Stack())))
			}
		}()
		if next != nil {
			next()
		}
	}
}
