// Package discovery lets players on the same host find each other by
// probing a small range of ports, each player serving its own announcement
// on the first free one.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var ErrInvalidAnnouncement = errors.New("invalid announcement")

// Announcement is what a player publishes: who it is and where its node
// listens.
type Announcement struct {
	PlayerID int    `json:"playerId"`
	Address  string `json:"address"`
}

func (a Announcement) validate() error {
	if a.PlayerID <= 0 || a.Address == "" {
		return fmt.Errorf("%w: %+v", ErrInvalidAnnouncement, a)
	}
	return nil
}

type Entry struct {
	Announcement
	Port uint16
}

func New(a Announcement, port uint16) (*Discover, error) {
	return NewWithPortRange(a, port, port, 2)
}

func NewWithPortRange(a Announcement, startPort, endPort uint16, attempts uint) (*Discover, error) {
	return NewWithOptions(a,
		WithPortRange(startPort, endPort),
		WithAttempts(attempts),
	)
}

type handler struct {
	announcement Announcement
}

func (h handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.announcement); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (d *Discover) search() {
	for port := d.startPort; port <= d.endPort; port++ {
		if port == d.port {
			continue
		}
		a, err := d.probe(port)
		if err != nil {
			continue
		}
		select {
		case d.Entries <- Entry{Announcement: a, Port: port}:
		case <-d.done:
			return
		}
	}
}

func (d *Discover) probe(port uint16) (Announcement, error) {
	resp, err := d.client.Get(fmt.Sprintf("http://%s:%d", d.host, port))
	if err != nil {
		return Announcement{}, err
	}
	defer resp.Body.Close()
	var a Announcement
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		return Announcement{}, fmt.Errorf("%w: %w", ErrInvalidAnnouncement, err)
	}
	return a, a.validate()
}

// Collect waits until players distinct players, this one included, are
// known and returns their addresses by player ID.
func (d *Discover) Collect(ctx context.Context, players int) (map[int]string, error) {
	found := map[int]string{d.announcement.PlayerID: d.announcement.Address}
	for len(found) < players {
		select {
		case e := <-d.Entries:
			if prev, ok := found[e.PlayerID]; ok && prev != e.Address {
				return nil, fmt.Errorf("player %d announced at both %s and %s", e.PlayerID, prev, e.Address)
			}
			found[e.PlayerID] = e.Address
		case <-ctx.Done():
			return found, fmt.Errorf("found %d of %d players: %w", len(found), players, ctx.Err())
		}
	}
	return found, nil
}

func (d *Discover) Close() error {
	d.once.Do(func() { close(d.done) })
	return d.server.Shutdown(context.Background())
}
