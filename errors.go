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
	"errors"
	"fmt"
)

// ErrInvalidPattern is matched by every error returned for a path template
// that cannot be compiled.
var ErrInvalidPattern = errors.New("numbat: invalid pattern")

// InvalidPatternError describes why a path template was rejected.
// Pos is the byte offset in Template where the problem was detected, or -1.
type InvalidPatternError struct {
	Template string
	Pos      int
	Reason   string
	Err      error
}

func (e *InvalidPatternError) Error() string {
	msg := fmt.Sprintf("numbat: invalid pattern %q: %s", e.Template, e.Reason)
	if e.Pos >= 0 {
		msg += fmt.Sprintf(" (at %d)", e.Pos)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidPatternError) Unwrap() error { return e.Err }

// Is reports ErrInvalidPattern as a match so callers can use errors.Is.
func (e *InvalidPatternError) Is(target error) bool { return target == ErrInvalidPattern }

func invalidPattern(tpl string, pos int, reason string) *InvalidPatternError {
	return &InvalidPatternError{Template: tpl, Pos: pos, Reason: reason}
}
