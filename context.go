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

import "context"

// Context carries the resolved url and parameters through one dispatch.
// Every handler of the chain sees the same Context.
type Context struct {
	URL    string
	Params Params

	router *Router
	ctx    context.Context
	values map[string]any
}

func newContext(ctx context.Context, r *Router, u string, params Params) *Context {
	return &Context{URL: u, Params: params, router: r, ctx: ctx}
}

// Param returns the value captured for name, or "".
func (c *Context) Param(name string) string {
	if c == nil {
		return ""
	}
	return c.Params[name]
}

// Set stores a value for the remaining handlers of this dispatch.
func (c *Context) Set(key string, v any) {
	if c == nil {
		return
	}
	if c.values == nil {
		c.values = map[string]any{}
	}
	c.values[key] = v
}

// Get returns a value stored with Set.
func (c *Context) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.values[key]
	return v, ok
}

// Redirect navigates to path once the current notification has been handled.
func (c *Context) Redirect(path string) {
	if c == nil || c.router == nil {
		return
	}
	c.router.Redirect(path)
}

// Context returns the dispatch context, carrying the dispatch span.
func (c *Context) Context() context.Context {
	if c == nil || c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// SetContext replaces the context handed to later handlers.
func (c *Context) SetContext(ctx context.Context) {
	if c != nil {
		c.ctx = ctx
	}
}
