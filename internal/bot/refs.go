package bot

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	// Telegram rejects callback data longer than this many bytes
	callbackDataLimit  = 64
	refPrefix          = "ref_"
	defaultRefCapacity = 10000
)

// refRegistry maps short ids to callback payloads too long for Telegram.
// The oldest ids are dropped once capacity is reached.
type refRegistry struct {
	mu        sync.Mutex
	capacity  int
	byID      map[string]string
	byPayload map[string]string
	order     []string
}

func newRefRegistry(capacity int) *refRegistry {
	return &refRegistry{
		capacity:  capacity,
		byID:      make(map[string]string),
		byPayload: make(map[string]string),
	}
}

func (r *refRegistry) put(payload string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byPayload[payload]; ok {
		return id
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	r.byID[id] = payload
	r.byPayload[payload] = id
	r.order = append(r.order, id)

	for len(r.order) > r.capacity {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.byPayload, r.byID[oldest])
		delete(r.byID, oldest)
	}

	return id
}

func (r *refRegistry) get(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payload, ok := r.byID[id]
	return payload, ok
}

func (r *refRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
