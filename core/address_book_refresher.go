package core

import (
	"context"
	"sync"
	"time"
)

// initialRefresherDelay is the fixed wait before the refresher's first
// cycle.
const initialRefresherDelay = 10 * time.Second

// AddressBookRefresher is the background periodic task that keeps a
// client's consensus snapshot in sync with the mirror network's address
// book. It never terminates the loop on a query failure — the
// predecessor snapshot remains usable, so a failed cycle only logs and
// waits for the next tick.
type AddressBookRefresher struct {
	client        *Client
	period        time.Duration
	plaintextOnly bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newAddressBookRefresher(client *Client, period time.Duration, plaintextOnly bool) *AddressBookRefresher {
	return &AddressBookRefresher{client: client, period: period, plaintextOnly: plaintextOnly}
}

// Start launches the background goroutine. If period is zero, the
// refresher is disabled and Start is a no-op.
func (r *AddressBookRefresher) Start() {
	if r.period <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.cancel = cancel
	r.done = make(chan struct{})
	done := r.done
	r.mu.Unlock()

	go r.run(ctx, done)
}

// Stop cancels the in-flight cycle and waits for the goroutine to exit.
// Cancellation is observed promptly at the initial delay, the sleep point,
// and between iterations. An address-book query already in flight runs to
// completion (or its 30-second timeout) before Stop returns; its result is
// discarded without being installed.
func (r *AddressBookRefresher) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
}

// RefreshOnce runs exactly one address-book query-and-install cycle against
// client's mirror network, synchronously, outside the periodic refresher —
// useful for manual operator tooling.
func RefreshOnce(client *Client, plaintextOnly bool) error {
	mirror := client.Mirror()
	book, err := queryAddressBook(mirror, client.Shard(), client.Realm())
	if err != nil {
		return err
	}
	if plaintextOnly {
		book = filterPlaintext(book)
	}
	return client.UpdateConsensus(func(prev *ConsensusNetwork) (*ConsensusNetwork, error) {
		return FromAddressBook(prev, book, zapSugarFor(client.Log()))
	})
}

func (r *AddressBookRefresher) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	log := r.client.Log().WithField("component", "address-book-refresher")

	select {
	case <-ctx.Done():
		return
	case <-time.After(initialRefresherDelay):
	}

	for {
		start := now()

		mirror := r.client.Mirror()
		book, err := queryAddressBook(mirror, r.client.Shard(), r.client.Realm())
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.WithError(err).Warn("address book refresh failed")
		} else {
			if r.plaintextOnly {
				book = filterPlaintext(book)
			}
			if err := r.client.UpdateConsensus(func(prev *ConsensusNetwork) (*ConsensusNetwork, error) {
				return FromAddressBook(prev, book, zapSugarFor(r.client.Log()))
			}); err != nil {
				log.WithError(err).Warn("address book install failed")
			} else {
				log.WithField("nodeCount", len(book)).Debug("address book refreshed")
			}
		}

		elapsed := now().Sub(start)
		wait := r.period - elapsed
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// queryAddressBook issues the address-book RPC against the mirror network's
// channel. The concrete wire schema for the network's node-list service is
// an external collaborator; this issues the call through the same
// ChannelBalancer.Invoke path every other request uses and decodes the
// minimal shape the core needs (node id, service endpoints).
func queryAddressBook(mirror *MirrorNetwork, shard, realm uint64) ([]AddressBookEntry, error) {
	channel := mirror.Channel()
	if channel == nil {
		return nil, &BadConfigError{Msg: "mirror network has no configured endpoints"}
	}
	var resp addressBookQueryResponse
	req := addressBookQueryRequest{Shard: shard, Realm: realm}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := channel.Invoke(ctx, "/com.hedera.mirror.api.proto.NetworkService/getNodes", req, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// filterPlaintext narrows every entry's service endpoints to those bound to
// the well-known consensus plaintext port.
func filterPlaintext(book []AddressBookEntry) []AddressBookEntry {
	out := make([]AddressBookEntry, 0, len(book))
	for _, entry := range book {
		filtered := make([]HostAndPort, 0, len(entry.ServiceEndpoints))
		for _, ep := range entry.ServiceEndpoints {
			if ep.Port == ConsensusPlaintextPort {
				filtered = append(filtered, ep)
			}
		}
		out = append(out, AddressBookEntry{NodeId: entry.NodeId, ServiceEndpoints: filtered})
	}
	return out
}

type addressBookQueryRequest struct {
	Shard uint64
	Realm uint64
}

type addressBookQueryResponse struct {
	Entries []AddressBookEntry
}
