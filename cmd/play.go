package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luca-patrignani/hangouts/config"
	"github.com/luca-patrignani/hangouts/discovery"
	"github.com/luca-patrignani/hangouts/domain/board"
	"github.com/luca-patrignani/hangouts/metrics"
	"github.com/luca-patrignani/hangouts/network"
	"github.com/luca-patrignani/hangouts/node"
	"github.com/luca-patrignani/hangouts/replica"
)

const defaultPort = 8000

type playOptions struct {
	*rootOptions
	player    int
	listen    string
	roster    string
	discover  bool
	portStart uint16
	portEnd   uint16
}

func newPlayCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &playOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join a networked game",
		Long: `Run a node for one player. The other players are either listed in a
YAML roster or found on this host through port-range discovery. Addresses in
the roster may be partial ("42:8000" or "0.42"); the missing octets are taken
from the listening address.

Examples:
  hangouts play --player 1 --listen 192.168.0.10:8000 --roster players.yaml
  hangouts play --player 2 --listen localhost:0 --discover`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (opts.roster == "") == !opts.discover {
				return errors.New("exactly one of --roster and --discover is required")
			}
			return runPlay(cmd.Context(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.player, "player", 0, "player ID, 1 to 4 (required)")
	_ = cmd.MarkFlagRequired("player")
	cmd.Flags().StringVar(&opts.listen, "listen", "localhost:0", "address to listen on")
	cmd.Flags().StringVar(&opts.roster, "roster", "", "YAML file with the address of every player")
	cmd.Flags().BoolVar(&opts.discover, "discover", false, "find the other players on this host")
	cmd.Flags().Uint16Var(&opts.portStart, "discovery-from", 9000, "first discovery port")
	cmd.Flags().Uint16Var(&opts.portEnd, "discovery-to", 9010, "last discovery port")

	return cmd
}

func runPlay(ctx context.Context, opts *playOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	logger := opts.logger

	id, err := board.NewPlayerID(opts.player)
	if err != nil {
		return err
	}
	host, port, err := splitHostPort(opts.listen, defaultPort)
	if err != nil {
		return err
	}
	l, err := net.Listen("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return fmt.Errorf("listen on %s: %w", opts.listen, err)
	}
	pterm.Info.Printfln("Listening on %s", l.Addr())
	if tcp, ok := l.(*net.TCPListener); ok {
		if subnet, err := subnetOfListener(tcp); err == nil {
			logger.Debug("listener subnet", "subnet", subnet.String())
		}
	}

	addresses, err := peerAddresses(ctx, opts, id, l)
	if err != nil {
		return errors.Join(err, l.Close())
	}
	players := make([]board.PlayerID, 0, len(addresses))
	for rank := range addresses {
		players = append(players, board.PlayerID(rank))
	}
	slices.Sort(players)

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		return errors.Join(err, l.Close())
	}
	provider, err := opts.cfg.Provider()
	if err != nil {
		return errors.Join(err, l.Close())
	}
	replicaOpts, err := opts.cfg.ReplicaOptions()
	if err != nil {
		return errors.Join(err, l.Close())
	}
	state, err := replica.New(id, provider, append(replicaOpts, replica.WithObserver(m), replica.WithLogger(logger))...)
	if err != nil {
		return errors.Join(err, l.Close())
	}

	peer := network.NewPeer(int(id), addresses, network.WithTimeout(opts.cfg.SendTimeout), network.WithLogger(logger))
	peer.Start(l)
	defer func() {
		if err := peer.Close(); err != nil {
			logger.Warn("closing peer", "error", err)
		}
	}()

	updates := make(chan replica.State, 1)
	n, err := node.New(state, peer, players,
		node.WithHandshakeTimeout(opts.cfg.HandshakeTimeout),
		node.WithLogger(logger),
		node.WithStateHook(func(s replica.State) { latest(updates, s) }),
	)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.Run(ctx) })
	if opts.cfg.MetricsAddr != "" {
		g.Go(func() error { return serveMetrics(ctx, opts.cfg.MetricsAddr, registry) })
	}
	g.Go(func() error {
		n.Join()
		if err := waitForKeys(ctx, n, len(players)); err != nil {
			return err
		}
		return playLoop(ctx, n, updates)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// peerAddresses returns the address of every player, this one included.
func peerAddresses(ctx context.Context, opts *playOptions, id board.PlayerID, l net.Listener) (map[int]string, error) {
	own := l.Addr().String()
	if opts.discover {
		d, err := discovery.NewWithOptions(
			discovery.Announcement{PlayerID: int(id), Address: own},
			discovery.WithPortRange(opts.portStart, opts.portEnd),
			discovery.WithAttempts(60),
		)
		if err != nil {
			return nil, err
		}
		defer d.Close()
		spinner, _ := pterm.DefaultSpinner.Start("Looking for the other players...")
		ctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		found, err := d.Collect(ctx, board.PlayerCount)
		if err != nil {
			spinner.Fail(err.Error())
			return nil, err
		}
		spinner.Success(fmt.Sprintf("Found %d players", len(found)))
		return found, nil
	}

	roster, err := config.LoadRoster(opts.roster)
	if err != nil {
		return nil, err
	}
	localIP := l.Addr().(*net.TCPAddr).IP
	addresses := map[int]string{}
	for rank, addr := range roster.Addresses() {
		if rank == int(id) {
			continue
		}
		full, err := resolvePeerAddress(localIP, addr)
		if err != nil {
			return nil, fmt.Errorf("player %d: %w", rank, err)
		}
		addresses[rank] = full
	}
	addresses[int(id)] = own
	return addresses, nil
}

func serveMetrics(ctx context.Context, addr string, registry *prometheus.Registry) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// latest replaces whatever update is still unread with v.
func latest[T any](updates chan T, v T) {
	for {
		select {
		case updates <- v:
			return
		default:
		}
		select {
		case <-updates:
		default:
		}
	}
}

func waitForKeys(ctx context.Context, n *node.Node, players int) error {
	spinner, _ := pterm.DefaultSpinner.Start("Exchanging keys with the other players...")
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if known := len(n.State().Keys()); known >= players {
			spinner.Success(fmt.Sprintf("Connected with %d players", known-1))
			return nil
		}
		select {
		case <-ctx.Done():
			spinner.Fail("Interrupted")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func playLoop(ctx context.Context, n *node.Node, updates <-chan replica.State) error {
	asked := -1
	s := n.State()
	for {
		if err := show(s, n.ID()); err != nil {
			return err
		}
		if s.Turn() == n.ID() && s.Log().Len() != asked {
			asked = s.Log().Len()
			x, y, err := promptMove(s.Board())
			if err != nil {
				return err
			}
			n.Move(x, y)
		}
		select {
		case <-ctx.Done():
			return nil
		case s = <-updates:
		}
	}
}

func show(s replica.State, me board.PlayerID) error {
	grid, err := renderBoard(s.Board())
	if err != nil {
		return err
	}
	pterm.Println(grid)
	pterm.Info.Println(turnBanner(s.Turn(), me))
	return nil
}

func promptMove(b board.Board) (int, int, error) {
	for {
		input, err := pterm.DefaultInteractiveTextInput.WithDefaultText("Your move as x,y").Show()
		if err != nil {
			return 0, 0, err
		}
		x, y, err := parseMove(input, b)
		if err == nil {
			return x, y, nil
		}
		pterm.Warning.Println(err)
	}
}

// parseMove reads "x,y" and checks the square lies on b.
func parseMove(input string, b board.Board) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(input), ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected x,y, got %q", input)
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x: %w", err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid y: %w", err)
	}
	if !b.Contains(board.Position{X: x, Y: y}) {
		return 0, 0, fmt.Errorf("%w: (%d,%d)", board.ErrOutOfBounds, x, y)
	}
	return x, y, nil
}
