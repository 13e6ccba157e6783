package network

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	senderRankHeader = "Sender-Rank"
	messageIDHeader  = "Message-Id"

	defaultInboxSize = 64
	retryInterval    = 20 * time.Millisecond
)

var (
	ErrTimeout     = errors.New("delivery timed out")
	ErrUnknownRank = errors.New("no address for rank")
	ErrClosed      = errors.New("peer closed")
)

// Message is a body received from another peer.
type Message struct {
	From int
	ID   string
	Data []byte
}

// Peer is an helper struct for communication between nodes.
// the Rank is an identifier of the Peer.
// Addresses[i] contains the address to reach the Peer with Rank i.
type Peer struct {
	Rank      int
	Addresses map[int]string
	server    *http.Server
	handler   *inboxHandler
	client    *http.Client
	tlsConfig *tls.Config
	timeout   time.Duration
	inboxSize int
	logger    *slog.Logger
}

type PeerOption func(Peer) Peer

// NewPeer creates a peer. It does not listen until Start is called.
func NewPeer(rank int, addresses map[int]string, opts ...PeerOption) Peer {
	p := Peer{
		Rank:      rank,
		Addresses: copyMap(addresses),
		inboxSize: defaultInboxSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		p = opt(p)
	}
	p.handler = &inboxHandler{
		messages: make(chan Message, p.inboxSize),
		seen:     map[string]bool{},
		done:     make(chan struct{}),
		logger:   p.logger,
	}
	p.server = &http.Server{Addr: addresses[rank], Handler: p.handler}
	p.client = &http.Client{Timeout: p.timeout}
	if p.tlsConfig != nil {
		p.client.Transport = &http.Transport{TLSClientConfig: p.tlsConfig}
	}
	return p
}

// Start serves incoming messages on l.
func (p Peer) Start(l net.Listener) {
	if p.tlsConfig != nil {
		l = tls.NewListener(l, p.tlsConfig)
	}
	go func() {
		err := p.server.Serve(l)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Error("peer stopped serving", "rank", p.Rank, "error", err)
		}
	}()
}

func (p Peer) Close() error {
	p.handler.close()
	return p.server.Shutdown(context.Background())
}

// Inbox returns the messages received by the peer.
func (p Peer) Inbox() <-chan Message {
	return p.handler.messages
}

// Send delivers data to the peer with rank to. It retries until the message
// is acknowledged, ctx ends or the peer timeout expires.
func (p Peer) Send(ctx context.Context, to int, data []byte) error {
	addr, ok := p.Addresses[to]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownRank, to)
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	id := uuid.NewString()
	var lastErr error
	for {
		err := p.post(ctx, p.url(addr), id, data)
		if err == nil {
			return nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: to %d: %w", ErrTimeout, to, lastErr)
			}
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

// Broadcast sends data to every other peer in rank order.
func (p Peer) Broadcast(ctx context.Context, data []byte) error {
	var errs []error
	for _, rank := range p.Ranks() {
		if rank == p.Rank {
			continue
		}
		if err := p.Send(ctx, rank, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ranks returns the known ranks in ascending order.
func (p Peer) Ranks() []int {
	ranks := make([]int, 0, len(p.Addresses))
	for r := range p.Addresses {
		ranks = append(ranks, r)
	}
	slices.Sort(ranks)
	return ranks
}

func (p Peer) post(ctx context.Context, url, id string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set(senderRankHeader, strconv.Itoa(p.Rank))
	req.Header.Set(messageIDHeader, id)
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return errors.Join(err, resp.Body.Close())
	}
	if err := resp.Body.Close(); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
	return nil
}

func (p Peer) url(addr string) string {
	if strings.Contains(addr, "://") {
		return addr
	}
	if p.tlsConfig != nil {
		return "https://" + addr
	}
	return "http://" + addr
}

type inboxHandler struct {
	messages chan Message
	mu       sync.Mutex
	seen     map[string]bool
	done     chan struct{}
	once     sync.Once
	logger   *slog.Logger
}

func (h *inboxHandler) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	from, err := strconv.Atoi(req.Header.Get(senderRankHeader))
	if err != nil {
		rw.WriteHeader(http.StatusBadRequest)
		return
	}
	id, err := uuid.Parse(req.Header.Get(messageIDHeader))
	if err != nil {
		rw.WriteHeader(http.StatusBadRequest)
		return
	}
	content, err := io.ReadAll(req.Body)
	if err != nil {
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}
	if !h.claim(id.String()) {
		h.logger.Debug("duplicate message acknowledged", "from", from, "id", id.String())
		rw.WriteHeader(http.StatusAccepted)
		return
	}
	select {
	case h.messages <- Message{From: from, ID: id.String(), Data: content}:
		rw.WriteHeader(http.StatusAccepted)
	case <-req.Context().Done():
		h.release(id.String())
		rw.WriteHeader(http.StatusServiceUnavailable)
	case <-h.done:
		h.release(id.String())
		rw.WriteHeader(http.StatusServiceUnavailable)
	}
}

// claim marks id as delivered. It reports false if it already was.
func (h *inboxHandler) claim(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.seen[id] {
		return false
	}
	h.seen[id] = true
	return true
}

func (h *inboxHandler) release(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.seen, id)
}

func (h *inboxHandler) close() {
	h.once.Do(func() { close(h.done) })
}

// CreateListeners opens one localhost listener per rank.
func CreateListeners(ranks ...int) (map[int]net.Listener, map[int]string) {
	listeners := make(map[int]net.Listener)
	addresses := make(map[int]string)
	for _, r := range ranks {
		l, err := net.Listen("tcp", "localhost:0")
		if err != nil {
			panic(err)
		}
		listeners[r] = l
		addresses[r] = l.Addr().String()
	}
	return listeners, addresses
}

func copyMap(original map[int]string) map[int]string {
	copied := make(map[int]string)
	for k, v := range original {
		copied[k] = v
	}
	return copied
}
