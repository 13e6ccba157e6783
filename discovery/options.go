package discovery

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

type Discover struct {
	Entries      chan Entry
	announcement Announcement
	host         string
	port         uint16
	startPort    uint16
	endPort      uint16
	server       *http.Server
	client       *http.Client
	attempts     uint
	interval     time.Duration
	done         chan struct{}
	once         *sync.Once
}

type option func(Discover) Discover

func NewWithOptions(a Announcement, opts ...option) (*Discover, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	d := Discover{
		Entries:      make(chan Entry),
		announcement: a,
		host:         "localhost",
		startPort:    9000,
		endPort:      9010,
		attempts:     1,
		interval:     time.Second,
		client:       &http.Client{Timeout: time.Second},
		done:         make(chan struct{}),
		once:         &sync.Once{},
	}
	for _, opt := range opts {
		d = opt(d)
	}

	var l net.Listener
	var err error
	var port uint16
	for port = d.startPort; port <= d.endPort; port++ {
		l, err = net.Listen("tcp", fmt.Sprintf("%s:%d", d.host, port))
		if err == nil {
			d.port = port
			break
		}
	}
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("empty port range %d-%d", d.startPort, d.endPort)
	}
	d.server = &http.Server{
		Addr:    l.Addr().String(),
		Handler: handler{announcement: a},
	}
	go func() {
		if err := d.server.Serve(l); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()
	go func() {
		for range d.attempts {
			d.search()
			select {
			case <-time.After(d.interval):
			case <-d.done:
				return
			}
		}
	}()
	return &d, nil
}

func WithPortRange(startPort, endPort uint16) option {
	return func(d Discover) Discover {
		d.startPort = startPort
		d.endPort = endPort
		return d
	}
}

func WithPort(port uint16) option {
	return WithPortRange(port, port)
}

func WithAttempts(attempts uint) option {
	return func(d Discover) Discover {
		d.attempts = attempts
		return d
	}
}

// WithInterval sets the pause between two scans of the port range.
func WithInterval(interval time.Duration) option {
	return func(d Discover) Discover {
		d.interval = interval
		return d
	}
}

func WithHost(host string) option {
	return func(d Discover) Discover {
		d.host = host
		return d
	}
}
