package testutil

import (
	"context"
	"sync"

	"github.com/useautumn/autumn-sub008/internal/domain/provider"
)

// StubStateFetcher implements provider.StateFetcher with canned states.
// Queueing several states for a group replays them in order, which lets
// tests drive the mismatch-then-resync path.
type StubStateFetcher struct {
	mu      sync.Mutex
	states  map[string][]*provider.State
	Fetches int
}

func NewStubStateFetcher() *StubStateFetcher {
	return &StubStateFetcher{
		states: make(map[string][]*provider.State),
	}
}

// SetState replaces the canned state for a group
func (f *StubStateFetcher) SetState(groupID string, state *provider.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[groupID] = []*provider.State{state}
}

// QueueStates replays the given states one per fetch, repeating the last
func (f *StubStateFetcher) QueueStates(groupID string, states ...*provider.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[groupID] = states
}

func (f *StubStateFetcher) FetchState(ctx context.Context, subscriptionGroupID string) (*provider.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Fetches++
	queue := f.states[subscriptionGroupID]
	if len(queue) == 0 {
		return &provider.State{}, nil
	}

	state := queue[0]
	if len(queue) > 1 {
		f.states[subscriptionGroupID] = queue[1:]
	}
	return state, nil
}
