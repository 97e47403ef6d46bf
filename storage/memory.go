package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	creatorledger "github.com/Bidon15/creatorledger"
	"github.com/Bidon15/creatorledger/identity"
	"github.com/Bidon15/creatorledger/ledger"
)

// Memory is a mutex-protected, in-process ledger.Store. It exists for
// tests and headless CI, the same role bao_store.go's map-backed store
// plays for the keyring tests it backs.
type Memory struct {
	mu       sync.Mutex
	creators map[string]*identity.Identity
	eventsBy map[string][]ledger.Event
}

// NewMemory constructs an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		creators: make(map[string]*identity.Identity),
		eventsBy: make(map[string][]ledger.Event),
	}
}

var _ ledger.Store = (*Memory)(nil)

// PutIdentity registers a creator. Calling it twice for the same
// creator_id is a storage error, mirroring Postgres's primary-key
// violation.
func (m *Memory) PutIdentity(_ context.Context, id *identity.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.creators[id.CreatorID]; exists {
		return fmt.Errorf("%w: creator %q already registered", creatorledger.ErrStorage, id.CreatorID)
	}
	cp := *id
	m.creators[id.CreatorID] = &cp
	return nil
}

// IdentityByID implements ledger.Store.
func (m *Memory) IdentityByID(_ context.Context, creatorID string) (*identity.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.creators[creatorID]
	if !ok {
		return nil, fmt.Errorf("%w: creator %q", creatorledger.ErrUnknownCreator, creatorID)
	}
	cp := *id
	return &cp, nil
}

// GetTip implements ledger.Store.
func (m *Memory) GetTip(_ context.Context, creatorID string) (ledger.Tip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.creators[creatorID]; !ok {
		return ledger.Tip{}, fmt.Errorf("%w: creator %q", creatorledger.ErrUnknownCreator, creatorID)
	}
	events := m.eventsBy[creatorID]
	if len(events) == 0 {
		return ledger.Tip{}, nil
	}
	last := events[len(events)-1]
	return ledger.Tip{Seq: last.Seq, ThisHash: last.ThisHash, RowVersion: last.RowVersion}, nil
}

// InsertIfTipMatches implements ledger.Store.
func (m *Memory) InsertIfTipMatches(_ context.Context, ev ledger.Event, expectedTip ledger.Tip) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := m.eventsBy[ev.CreatorID]
	var actualTip ledger.Tip
	if n := len(events); n > 0 {
		last := events[n-1]
		actualTip = ledger.Tip{Seq: last.Seq, ThisHash: last.ThisHash, RowVersion: last.RowVersion}
	}
	if actualTip != expectedTip {
		return fmt.Errorf("%w: tip moved for creator %q", creatorledger.ErrConcurrencyConflict, ev.CreatorID)
	}
	m.eventsBy[ev.CreatorID] = append(events, ev)
	return nil
}

// GetEvent implements ledger.Store.
func (m *Memory) GetEvent(_ context.Context, creatorID string, seq uint64) (ledger.Event, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.eventsBy[creatorID] {
		if ev.Seq == seq {
			return ev, true, nil
		}
	}
	return ledger.Event{}, false, nil
}

// ListEvents implements ledger.Store.
func (m *Memory) ListEvents(_ context.Context, creatorID string, fromSeq, toSeq uint64) ([]ledger.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := append([]ledger.Event(nil), m.eventsBy[creatorID]...)
	sort.Slice(all, func(i, j int) bool { return all[i].Seq < all[j].Seq })

	var out []ledger.Event
	for _, ev := range all {
		if ev.Seq < fromSeq {
			continue
		}
		if toSeq != 0 && ev.Seq > toSeq {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// TamperPayload mutates a stored event's payload in place without
// recomputing this_hash or the signature. It exists for tests exercising
// VerifyChain's tamper-detection path (I2/I3).
func (m *Memory) TamperPayload(creatorID string, seq uint64, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := m.eventsBy[creatorID]
	for i := range events {
		if events[i].Seq == seq {
			events[i].Payload = payload
			return
		}
	}
}
