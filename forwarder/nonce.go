package forwarder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/BuFi007/autopay-go"
	"github.com/BuFi007/autopay-go/storage"
)

const noncePrefix = "nonce/"

// NonceRegistry tracks one strictly increasing counter per account. Counters
// start at 0 on first use and advance by exactly 1 per consumed request; they
// are never decremented or reset.
type NonceRegistry struct {
	mu sync.Mutex
	db storage.Database
}

// NewNonceRegistry creates a registry persisting counters in db.
func NewNonceRegistry(db storage.Database) *NonceRegistry {
	return &NonceRegistry{db: db}
}

func nonceKey(account common.Address) []byte {
	return []byte(noncePrefix + account.Hex())
}

func (r *NonceRegistry) load(account common.Address) (uint64, error) {
	raw, err := r.db.Get(nonceKey(account))
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("corrupt nonce record for %s", account.Hex())
	}
	return binary.BigEndian.Uint64(raw), nil
}

// Current returns the account's current nonce, 0 for unseen accounts.
func (r *NonceRegistry) Current(account common.Address) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(account)
}

// Consume checks presented against the account's current nonce and, on match,
// atomically advances the counter. A stale or future nonce fails with
// ErrNonceMismatch and leaves the counter unchanged.
func (r *NonceRegistry) Consume(account common.Address, presented uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.load(account)
	if err != nil {
		return err
	}
	if presented != current {
		return autopay.NewError(autopay.ErrCodeNonceMismatch, "nonce mismatch", autopay.ErrNonceMismatch).
			WithDetails("account", account.Hex()).
			WithDetails("presented", fmt.Sprintf("%d", presented)).
			WithDetails("current", fmt.Sprintf("%d", current))
	}

	next := make([]byte, 8)
	binary.BigEndian.PutUint64(next, current+1)
	return r.db.Put(nonceKey(account), next)
}
