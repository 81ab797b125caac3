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

import "strings"

// SanitizeConfig configures the Sanitizer.
type SanitizeConfig struct {
	// Params is the list of parameter names to redact (without ":" prefix).
	Params []string

	// Mask is the replacement string for redacted values. Default: "***".
	Mask string
}

// DefaultSanitizeConfig returns a SanitizeConfig with sensible defaults.
// The redaction list is empty (no-op) and the mask is "***".
func DefaultSanitizeConfig() SanitizeConfig {
	return SanitizeConfig{
		Params: []string{},
		Mask:   "***",
	}
}

// Sanitizer redacts parameter values from urls before they are logged.
// Methods on a nil *Sanitizer return inputs unchanged, so callers can skip a
// nil check.
type Sanitizer struct {
	mask     string
	paramSet map[string]struct{}
}

// NewSanitizer creates a Sanitizer from the given config. It returns nil if
// there is nothing to redact.
func NewSanitizer(cfg SanitizeConfig) *Sanitizer {
	paramSet := make(map[string]struct{}, len(cfg.Params))
	for _, p := range cfg.Params {
		paramSet[p] = struct{}{}
	}
	if len(paramSet) == 0 {
		return nil
	}

	mask := cfg.Mask
	if mask == "" {
		mask = "***"
	}
	return &Sanitizer{mask: mask, paramSet: paramSet}
}

// Path returns path with every segment equal to a configured parameter's
// value replaced by the mask.
func (s *Sanitizer) Path(path string, params map[string]string) string {
	if s == nil || len(s.paramSet) == 0 {
		return path
	}

	redactValues := make(map[string]struct{})
	for name := range s.paramSet {
		if v, ok := params[name]; ok && v != "" {
			redactValues[v] = struct{}{}
		}
	}
	if len(redactValues) == 0 {
		return path
	}

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if _, found := redactValues[seg]; found {
			segments[i] = s.mask
		}
	}
	return strings.Join(segments, "/")
}
