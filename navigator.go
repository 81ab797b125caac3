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
	"slices"
	"strings"
	"sync"
)

// Listener is notified after the navigator's location changes.
// Implementations must be comparable; they are registered by identity.
type Listener interface {
	Navigated()
}

// Navigator abstracts the host's location, such as a browser window.
type Navigator interface {
	// Path returns the location path without the fragment.
	Path() string
	// Hash returns the fragment including its leading "#", or "".
	Hash() string
	// SetHash changes the fragment and notifies listeners if it changed.
	SetHash(hash string)
	// Replace rewrites the whole location without notifying listeners.
	Replace(location string)
	// AddListener subscribes l. Adding the same listener twice has no effect.
	AddListener(l Listener)
	// RemoveListener unsubscribes l.
	RemoveListener(l Listener)
}

// MemoryNavigator is a Navigator held in memory, for headless hosts and
// tests. Notifications are serialized: a change made while listeners are
// being notified is delivered after they return, by the goroutine already
// delivering.
type MemoryNavigator struct {
	mu         sync.Mutex
	path       string
	hash       string
	listeners  []Listener
	pending    int
	delivering bool
	history    []string
}

// NewMemoryNavigator creates a navigator positioned at location, e.g. "/" or "/#/about".
func NewMemoryNavigator(location string) *MemoryNavigator {
	n := &MemoryNavigator{}
	n.path, n.hash = splitLocation(location)
	n.history = []string{n.path + n.hash}
	return n
}

func (n *MemoryNavigator) Path() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

func (n *MemoryNavigator) Hash() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.hash
}

// Location returns path and fragment joined.
func (n *MemoryNavigator) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path + n.hash
}

// History returns every location the navigator has held, oldest first.
func (n *MemoryNavigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.history)
}

func (n *MemoryNavigator) SetHash(hash string) {
	if hash != "" && !strings.HasPrefix(hash, "#") {
		hash = "#" + hash
	}
	n.mu.Lock()
	if hash == n.hash {
		n.mu.Unlock()
		return
	}
	n.hash = hash
	n.history = append(n.history, n.path+n.hash)
	n.pending++
	n.mu.Unlock()
	n.deliver()
}

func (n *MemoryNavigator) Replace(location string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.path, n.hash = splitLocation(location)
	if len(n.history) == 0 {
		n.history = append(n.history, n.path+n.hash)
		return
	}
	n.history[len(n.history)-1] = n.path + n.hash
}

func (n *MemoryNavigator) AddListener(l Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if slices.Contains(n.listeners, l) {
		return
	}
	n.listeners = append(n.listeners, l)
}

func (n *MemoryNavigator) RemoveListener(l Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if i := slices.Index(n.listeners, l); i >= 0 {
		n.listeners = slices.Delete(n.listeners, i, i+1)
	}
}

func (n *MemoryNavigator) deliver() {
	n.mu.Lock()
	if n.delivering {
		n.mu.Unlock()
		return
	}
	n.delivering = true
	finished := false
	defer func() {
		if !finished {
			n.mu.Lock()
			n.delivering = false
			n.pending = 0
			n.mu.Unlock()
		}
	}()

	for n.pending > 0 {
		n.pending--
		ls := slices.Clone(n.listeners)
		n.mu.Unlock()
		for _, l := range ls {
			l.Navigated()
		}
		n.mu.Lock()
	}
	n.delivering = false
	finished = true
	n.mu.Unlock()
}

func splitLocation(location string) (path, hash string) {
	path = location
	if i := strings.IndexByte(location, '#'); i >= 0 {
		path, hash = location[:i], location[i:]
	}
	if hash == "#" {
		hash = ""
	}
	if path == "" {
		path = "/"
	}
	return path, hash
}
