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

package numbat_test

import (
	"bytes"
	"io"
	"log/slog"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	n "github.com/jrgalyan/numbat"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

var _ = Describe("Router", func() {
	var (
		nav *n.MemoryNavigator
		r   *n.Router
		log []string
	)

	BeforeEach(func() {
		nav = n.NewMemoryNavigator("/")
		r = n.New(n.Config{Navigator: nav, Logger: quiet})
		log = nil
	})

	Describe("Find", func() {
		It("extracts named parameters", func() {
			r.Use("/users/:id", record(&log, "user"))
			res := r.Find("/users/42")
			Expect(res.Params).To(Equal(n.Params{"id": "42"}))
			Expect(res.Handlers).To(HaveLen(2))
		})

		It("puts a guard before the route's own handlers in registration order", func() {
			r.Use("/a", record(&log, "h1"), record(&log, "h2"))
			res := r.Find("/a")
			Expect(res.Handlers).To(HaveLen(3))

			res.Handlers[1](nil, nil)
			res.Handlers[2](nil, nil)
			Expect(log).To(Equal([]string{"h1", "h2"}))

			next := 0
			res.Handlers[0](&n.Context{Params: res.Params}, func() { next++ })
			Expect(next).To(Equal(1))
			Expect(log).To(Equal([]string{"h1", "h2"}))
		})

		It("returns empty but non-nil results when nothing matches", func() {
			r.Use("/a", record(&log, "a"))
			res := r.Find("/b")
			Expect(res.Params).NotTo(BeNil())
			Expect(res.Params).To(BeEmpty())
			Expect(res.Handlers).NotTo(BeNil())
			Expect(res.Handlers).To(BeEmpty())
		})

		It("concatenates every matching route in registration order", func() {
			r.Use("/a/:x", record(&log, "first"))
			r.Use("/nope", record(&log, "never"))
			r.Use("/a/*", record(&log, "second"))
			res := r.Find("/a/1")
			Expect(res.Handlers).To(HaveLen(4))

			run(res)
			Expect(log).To(Equal([]string{"first", "second"}))
		})

		It("lets the later route win for a shared parameter name", func() {
			r.Use("/a/:id/c", record(&log, "one"))
			r.Use("/a/b/:id", record(&log, "two"))
			res := r.Find("/a/b/c")
			Expect(res.Handlers).To(HaveLen(4))
			Expect(res.Params).To(Equal(n.Params{"id": "c"}))
		})

		It("drops invalid templates without affecting other routes", func() {
			var buf bytes.Buffer
			r = n.New(n.Config{Navigator: nav, Logger: slog.New(slog.NewTextHandler(&buf, nil))})
			r.Use("/before", record(&log, "before"))
			r.Use("[invalid", record(&log, "h1")).Use("/ok", record(&log, "h2"))

			Expect(buf.String()).To(ContainSubstring("[invalid"))
			Expect(r.Routes()).To(HaveLen(2))

			res := r.Find("/ok")
			Expect(res.Handlers).To(HaveLen(2))
			run(res)
			Expect(log).To(Equal([]string{"h2"}))

			Expect(r.Find("/before").Handlers).To(HaveLen(2))
		})

		It("panics on nil handler at registration time", func() {
			Expect(func() {
				r.Use("/bad", nil)
			}).To(PanicWith("numbat: nil handler"))
		})

		It("handles concurrent resolution safely", func() {
			r.Use("/user/:id", record(&log, "user"))

			var wg sync.WaitGroup
			const workers = 50
			wg.Add(workers)
			for i := 0; i < workers; i++ {
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					res := r.Find("/user/7")
					Expect(res.Params).To(HaveKeyWithValue("id", "7"))
				}()
			}
			wg.Wait()
		})
	})

	Describe("Guard", func() {
		It("continues on the first call and suppresses an identical second call", func() {
			r.Use("/about", record(&log, "about"))
			guard := r.Find("/about").Handlers[0]
			c := &n.Context{Params: n.Params{}}

			calls := 0
			guard(c, func() { calls++ })
			guard(c, func() { calls++ })
			Expect(calls).To(Equal(1))

			last, ok := r.LastPath()
			Expect(ok).To(BeTrue())
			Expect(last).To(Equal("/about"))
		})

		It("compares paths rendered from the parameters", func() {
			r.Use("/users/:id", record(&log, "user"))
			calls := 0
			for _, u := range []string{"/users/1", "/users/1/", "/users/2"} {
				res := r.Find(u)
				res.Handlers[0](&n.Context{Params: res.Params}, func() { calls++ })
			}
			Expect(calls).To(Equal(2))
			last, _ := r.LastPath()
			Expect(last).To(Equal("/users/2"))
		})

		It("uses the template prefix before a wildcard", func() {
			r.Use("/files/*", record(&log, "files"))
			Expect(r.Routes()[0].Base).To(Equal("/files/"))

			calls := 0
			for _, u := range []string{"/files/a", "/files/b"} {
				res := r.Find(u)
				res.Handlers[0](&n.Context{Params: res.Params}, func() { calls++ })
			}
			Expect(calls).To(Equal(1))
		})

		It("keeps escaped and embedded asterisks in the route base", func() {
			r.Use(`/a\*b`, record(&log, "star"))
			r.Use(`/n/:id(\d*)`, record(&log, "digits"))
			routes := r.Routes()
			Expect(routes[0].Base).To(Equal(`/a\*b`))
			Expect(routes[1].Base).To(Equal(`/n/:id(\d*)`))

			calls := 0
			for _, u := range []string{"/a*b", "/a*b/"} {
				res := r.Find(u)
				Expect(res.Handlers).To(HaveLen(2))
				res.Handlers[0](&n.Context{Params: res.Params}, func() { calls++ })
			}
			Expect(calls).To(Equal(1))
			last, _ := r.LastPath()
			Expect(last).To(Equal("/a*b"))
		})

		It("tolerates being called without context or continuation", func() {
			r.Use("/about", record(&log, "about"))
			guard := r.Find("/about").Handlers[0]
			Expect(func() { guard(nil, nil) }).NotTo(Panic())
			last, _ := r.LastPath()
			Expect(last).To(Equal("/about"))
		})

		It("forgets the last path on Reset", func() {
			r.Use("/about", record(&log, "about"))
			guard := r.Find("/about").Handlers[0]
			calls := 0
			guard(nil, func() { calls++ })
			r.Reset()
			_, ok := r.LastPath()
			Expect(ok).To(BeFalse())
			guard(nil, func() { calls++ })
			Expect(calls).To(Equal(2))
		})
	})

	Describe("Base", func() {
		It("prefixes later registrations only", func() {
			r = n.New(n.Config{Base: "/app", Navigator: nav, Logger: quiet})
			r.Use("/users/:id", record(&log, "a"))
			r.Base("/").Use("/plain", record(&log, "b"))
			r.Base("/admin").Use("/files/*", record(&log, "c"))

			routes := r.Routes()
			Expect(routes).To(HaveLen(3))
			Expect(routes[0].Pattern).To(Equal("/app/users/:id"))
			Expect(routes[0].Keys).To(Equal([]string{"id"}))
			Expect(routes[1].Pattern).To(Equal("/plain"))
			Expect(routes[2].Pattern).To(Equal("/admin/files/*"))
			Expect(routes[2].Base).To(Equal("/admin/files/"))
			Expect(routes[2].Handlers).To(Equal(1))

			Expect(r.Find("/app/users/9").Params).To(Equal(n.Params{"id": "9"}))
			Expect(r.Find("/users/9").Handlers).To(BeEmpty())
		})
	})

	Describe("Dispatch", func() {
		It("runs matched handlers once and suppresses re-navigation to the same path", func() {
			var params []n.Params
			about := func(c *n.Context, next func()) {
				log = append(log, "about")
				params = append(params, c.Params)
				next()
			}
			r.Use("/", record(&log, "home"))
			r.Use("/about", about)
			r.Start()
			Expect(log).To(Equal([]string{"home"}))

			nav.SetHash("/about")
			Expect(log).To(Equal([]string{"home", "about"}))
			Expect(params).To(Equal([]n.Params{{}}))

			r.Dispatch()
			nav.SetHash("/about/")
			Expect(log).To(Equal([]string{"home", "about"}))

			nav.SetHash("/")
			Expect(log).To(Equal([]string{"home", "about", "home"}))
		})

		It("is a no-op when nothing matches", func() {
			r.Use("/about", record(&log, "about"))
			nav.SetHash("/missing")
			r.Dispatch()
			Expect(log).To(BeEmpty())
			_, ok := r.LastPath()
			Expect(ok).To(BeFalse())
		})

		It("halts when a handler does not call next", func() {
			stop := func(c *n.Context, next func()) { log = append(log, "stop") }
			r.Use("/h", stop, record(&log, "after"))
			r.Use("/h", record(&log, "other"))
			nav.SetHash("/h")
			r.Dispatch()
			Expect(log).To(Equal([]string{"stop"}))
		})

		It("shares one context across the chain", func() {
			r.Use("/p/:id",
				func(c *n.Context, next func()) { c.Set("seen", c.Param("id")); next() },
				func(c *n.Context, next func()) {
					v, ok := c.Get("seen")
					Expect(ok).To(BeTrue())
					log = append(log, v.(string), c.URL)
					next()
				},
			)
			nav.SetHash("/p/5")
			r.Dispatch()
			Expect(log).To(Equal([]string{"5", "/p/5"}))
		})

		It("rewrites a non-root path into hash form before matching", func() {
			nav = n.NewMemoryNavigator("/about")
			r = n.New(n.Config{Navigator: nav, Logger: quiet})
			r.Use("/about", record(&log, "about"))
			r.Start()
			Expect(nav.Location()).To(Equal("/#/about"))
			Expect(log).To(Equal([]string{"about"}))
		})

		It("stops dispatching after Stop", func() {
			r.Use("/", record(&log, "home"))
			r.Use("/about", record(&log, "about"))
			r.Start()
			r.Stop()
			nav.SetHash("/about")
			Expect(log).To(Equal([]string{"home"}))

			r.Start()
			Expect(log).To(Equal([]string{"home", "about"}))
		})

		It("subscribes once even when started twice", func() {
			r.Use("/x/:id", record(&log, "x"))
			r.Start()
			r.Start()
			nav.SetHash("/x/1")
			Expect(log).To(Equal([]string{"x"}))
		})

		It("dispatches a redirect after the current chain returns", func() {
			r.Use("/old", func(c *n.Context, next func()) {
				log = append(log, "old")
				c.Redirect("/new")
				log = append(log, "old-done")
			})
			r.Use("/new", record(&log, "new"))
			r.Start()
			r.Redirect("/old")
			Expect(log).To(Equal([]string{"old", "old-done", "new"}))
			Expect(nav.Hash()).To(Equal("#/new"))
			Expect(nav.History()).To(Equal([]string{"/", "/#/old", "/#/new"}))
		})

		It("dispatches a redirect raised during the initial dispatch", func() {
			nav = n.NewMemoryNavigator("/#/secret")
			r = n.New(n.Config{Navigator: nav, Logger: quiet})
			r.Use("/secret", func(c *n.Context, next func()) {
				log = append(log, "secret")
				c.Redirect("/login")
			})
			r.Use("/login", record(&log, "login"))
			r.Use("/home", record(&log, "home"))
			r.Start()

			Expect(nav.Hash()).To(Equal("#/login"))
			Expect(log).To(Equal([]string{"secret", "login"}))

			nav.SetHash("/home")
			Expect(log).To(Equal([]string{"secret", "login", "home"}))
		})

		It("dispatches the initial location once when nothing redirects", func() {
			r.Use("/", record(&log, "home"))
			r.Start()
			Expect(log).To(Equal([]string{"home"}))
		})

		It("propagates handler panics", func() {
			r.Use("/boom", func(c *n.Context, next func()) { panic("boom") })
			nav.SetHash("/boom")
			Expect(func() { r.Dispatch() }).To(PanicWith("boom"))
		})
	})
})
