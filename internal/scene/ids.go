/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// elementNamespace scopes the name-based element ids.
var elementNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:gocollage:element"))

// IDAllocator hands out shape ids. Frames are numbered; elements get a
// name-based UUID over the image reference and the allocation sequence, so the
// same session replayed yields the same ids. Counters only grow.
type IDAllocator struct {
	mu     sync.Mutex
	frames int
	seq    int
}

// NextFrame returns "frame-N".
func (a *IDAllocator) NextFrame() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frames++
	return fmt.Sprintf("frame-%d", a.frames)
}

// NextElement returns "element-<uuid>" for the image reference.
func (a *IDAllocator) NextElement(imageRef string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	name := fmt.Sprintf("%s#%d", imageRef, a.seq)
	return "element-" + uuid.NewSHA1(elementNamespace, []byte(name)).String()
}
