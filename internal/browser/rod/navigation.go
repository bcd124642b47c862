package rod

import (
	"sync"

	"github.com/go-rod/rod/lib/proto"
)

const titleScript = `() => document.title`

// navigation tracks one main-frame navigation. Lifecycle events and document
// responses are matched on the loader id PageNavigate returned, so events of
// the previous document never end the wait.
type navigation struct {
	frame     proto.PageFrameID
	lifecycle proto.PageLifecycleEventName

	mu        sync.Mutex
	loader    proto.NetworkLoaderID
	documents map[proto.NetworkLoaderID]int
}

func newNavigation(frame proto.PageFrameID, lifecycle proto.PageLifecycleEventName) *navigation {
	return &navigation{
		frame:     frame,
		lifecycle: lifecycle,
		documents: make(map[proto.NetworkLoaderID]int),
	}
}

// expect sets the loader whose lifecycle event completes the navigation.
func (n *navigation) expect(loader proto.NetworkLoaderID) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.loader = loader
}

func (n *navigation) handleResponse(e *proto.NetworkResponseReceived) {
	if e.Type != proto.NetworkResourceTypeDocument || e.Response == nil {
		return
	}

	if e.FrameID != "" && e.FrameID != n.frame {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.documents[e.LoaderID] = e.Response.Status
}

// handleLifecycle reports whether e completes the expected navigation.
func (n *navigation) handleLifecycle(e *proto.PageLifecycleEvent) bool {
	if e.Name != n.lifecycle || e.FrameID != n.frame {
		return false
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	return n.loader != "" && e.LoaderID == n.loader
}

// status returns the main document status of the expected loader.
func (n *navigation) status() (int, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.loader == "" {
		return 0, false
	}

	status, ok := n.documents[n.loader]

	return status, ok
}

// remoteString returns the value of a string remote object, or "" for any
// other result.
func remoteString(obj *proto.RuntimeRemoteObject) string {
	if obj == nil || obj.Type != proto.RuntimeRemoteObjectTypeString {
		return ""
	}

	return obj.Value.Str()
}
