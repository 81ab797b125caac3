// Package numbat provides a small hash-fragment navigation router for Go clients
// (WebAssembly front ends, embedded UIs, headless shells).
//
// It focuses on:
//   - Path templates with named parameters, optional and repeated segments and wildcards
//   - Continuation-passing handler chains where each handler decides whether to go on
//   - Suppression of repeated navigation to the same resolved path
//   - A Navigator interface so the host's location can be swapped for MemoryNavigator in tests
//
// Getting started:
//
//	nav := numbat.NewMemoryNavigator("/")
//	r := numbat.New(numbat.Config{Navigator: nav})
//	r.Use("/users/:id", func(c *numbat.Context, next func()) {
//		fmt.Println("user", c.Param("id"))
//		next()
//	})
//	r.Start()
//	r.Redirect("/users/42")
//
// Every route that matches contributes to the chain, in registration order.
// When two matching routes capture a parameter with the same name, the value
// from the later route is the one handlers see.
package numbat
