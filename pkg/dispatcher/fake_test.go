package dispatcher_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/ports"
)

type fakeHandle struct {
	container string
	id        string
}

func (h fakeHandle) ContainerID() string { return h.container }
func (h fakeHandle) SessionID() string   { return h.id }

// fakeSDK opens sessions immediately unless gated. A gated open blocks until
// release is called for that container.
type fakeSDK struct {
	mu        sync.Mutex
	seq       int
	gated     bool
	gates     map[string]chan error
	openErr   error
	configErr error
	logErr    error
	logDelay  time.Duration
	hold      chan struct{} // Configure blocks until closed
	holding   chan string
	configs   map[string]domain.Value
	hits      []domain.Hit
	closed    []string
	started   chan string
}

func newFakeSDK() *fakeSDK {
	return &fakeSDK{
		gates:   make(map[string]chan error),
		configs: make(map[string]domain.Value),
		started: make(chan string, 16),
		holding: make(chan string, 16),
	}
}

func (f *fakeSDK) gate(containerID string) chan error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.gates[containerID]
	if !ok {
		ch = make(chan error, 1)
		f.gates[containerID] = ch
	}
	return ch
}

// release lets a gated open for containerID finish with err.
func (f *fakeSDK) release(containerID string, err error) {
	f.gate(containerID) <- err
}

func (f *fakeSDK) OpenSession(ctx context.Context, containerID string) (ports.SessionHandle, error) {
	f.mu.Lock()
	gated, openErr := f.gated, f.openErr
	f.mu.Unlock()

	if gated {
		f.started <- containerID
		select {
		case err := <-f.gate(containerID):
			if err != nil {
				return nil, err
			}
		case <-time.After(5 * time.Second):
			return nil, fmt.Errorf("gate for %s never released", containerID)
		}
	} else if openErr != nil {
		return nil, openErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return fakeHandle{container: containerID, id: fmt.Sprintf("s-%d", f.seq)}, nil
}

func (f *fakeSDK) Configure(ctx context.Context, h ports.SessionHandle, key string, value domain.Value) error {
	f.mu.Lock()
	hold := f.hold
	f.mu.Unlock()
	if hold != nil {
		f.holding <- key
		<-hold
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.configErr != nil {
		return f.configErr
	}
	f.configs[key] = value
	return nil
}

func (f *fakeSDK) LogEvent(ctx context.Context, h ports.SessionHandle, hit domain.Hit) error {
	f.mu.Lock()
	delay := f.logDelay
	f.mu.Unlock()
	time.Sleep(delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logErr != nil {
		return f.logErr
	}
	for _, sid := range f.closed {
		if sid == h.SessionID() {
			return fmt.Errorf("session %s is closed", sid)
		}
	}
	f.hits = append(f.hits, hit)
	return nil
}

func (f *fakeSDK) CloseSession(ctx context.Context, h ports.SessionHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, h.SessionID())
	return nil
}

func (f *fakeSDK) closedSessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.closed...)
}

func (f *fakeSDK) loggedHits() []domain.Hit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Hit(nil), f.hits...)
}

func (f *fakeSDK) configured(key string) (domain.Value, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.configs[key]
	return v, ok
}

// recorder is a response sink that keeps every delivery.
type recorder struct {
	mu   sync.Mutex
	got  []domain.Response
	more chan struct{}
}

func newRecorder() *recorder {
	return &recorder{more: make(chan struct{}, 64)}
}

func (r *recorder) Deliver(callbackID string, resp domain.Response) {
	r.mu.Lock()
	resp.CallbackID = callbackID
	r.got = append(r.got, resp)
	r.mu.Unlock()
	r.more <- struct{}{}
}

func (r *recorder) responses() []domain.Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Response(nil), r.got...)
}

// waitFor blocks until n responses were delivered in total.
func (r *recorder) waitFor(n int) []domain.Response {
	deadline := time.After(2 * time.Second)
	for {
		if got := r.responses(); len(got) >= n {
			return got
		}
		select {
		case <-r.more:
		case <-deadline:
			return r.responses()
		}
	}
}

func (r *recorder) byCallback(id string) []domain.Response {
	var out []domain.Response
	for _, resp := range r.responses() {
		if resp.CallbackID == id {
			out = append(out, resp)
		}
	}
	return out
}
