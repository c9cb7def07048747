// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kernel

import (
	"sort"

	"gvisor.dev/ukernel/pkg/errors/linuxerr"
	"gvisor.dev/ukernel/pkg/sync"
)

// EntryFunc is code run by a task. Its return value is the task's exit code.
type EntryFunc func(t *Task, arg uintptr) int32

// Image is a loadable program. Entries[0] is the main entry, run by the
// first task of a process; other entries are started by thread_create and
// fork.
type Image struct {
	Name    string
	Entries []EntryFunc
}

// Loader resolves image names.
type Loader struct {
	mu sync.Mutex

	// images is protected by mu.
	images map[string]*Image
}

// NewLoader returns a loader holding images.
func NewLoader(images ...*Image) *Loader {
	l := &Loader{images: make(map[string]*Image)}
	for _, img := range images {
		if err := l.Register(img); err != nil {
			panic("duplicate image " + img.Name)
		}
	}
	return l
}

// Register adds img. It fails with EEXIST if the name is taken and with
// ENOEXEC if img has no entries.
func (l *Loader) Register(img *Image) error {
	if len(img.Entries) == 0 {
		return linuxerr.ENOEXEC
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.images[img.Name]; ok {
		return linuxerr.EEXIST
	}
	l.images[img.Name] = img
	return nil
}

// Load returns the image named name, or ENOENT.
func (l *Loader) Load(name string) (*Image, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	img, ok := l.images[name]
	if !ok {
		return nil, linuxerr.ENOENT
	}
	return img, nil
}

// Names returns the registered image names in sorted order.
func (l *Loader) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.images))
	for name := range l.images {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
