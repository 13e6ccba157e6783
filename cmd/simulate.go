package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/luca-patrignani/hangouts/domain/action"
	"github.com/luca-patrignani/hangouts/domain/board"
	"github.com/luca-patrignani/hangouts/propagation"
	"github.com/luca-patrignani/hangouts/replica"
)

type simulateOptions struct {
	*rootOptions
	moves int
	plain bool
}

func newSimulateCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &simulateOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play a game between four in-memory replicas",
		Long: `Create four replicas, introduce them to each other with unsecured Joins
and play the requested number of moves in turn, filling the board row by row.
The command fails if the replicas do not end up with the same board.

Examples:
  hangouts simulate --moves 20
  HANGOUTS_BOARD_WIDTH=4 HANGOUTS_BOARD_HEIGHT=3 hangouts simulate --moves 6 --plain`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&opts.moves, "moves", 16, "number of moves to play")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "print the board without styling")

	return cmd
}

func runSimulate(ctx context.Context, opts *simulateOptions, out io.Writer) error {
	if opts.moves < 0 {
		return fmt.Errorf("invalid number of moves %d", opts.moves)
	}
	provider, err := opts.cfg.Provider()
	if err != nil {
		return err
	}
	replicaOpts, err := opts.cfg.ReplicaOptions()
	if err != nil {
		return err
	}
	rejected := 0
	replicaOpts = append(replicaOpts,
		replica.WithLogger(opts.logger),
		replica.WithObserver(replica.RejectionFunc(func(s replica.State, a action.Action, reason replica.Reason) {
			rejected++
		})),
	)
	engine := propagation.New(propagation.WithLogger(opts.logger))

	r, err := replica.NewRegistry()
	if err != nil {
		return err
	}
	for _, id := range board.Players() {
		s, err := replica.New(id, provider, replicaOpts...)
		if err != nil {
			return err
		}
		if r, err = r.Add(s); err != nil {
			return err
		}
		if r, err = engine.DispatchUnsecured(ctx, id, action.CreateJoin(s), r); err != nil {
			return err
		}
	}

	width, height := opts.cfg.BoardWidth, opts.cfg.BoardHeight
	for i := range opts.moves {
		mover := board.Players()[i%board.PlayerCount]
		s, _ := r.Get(mover)
		x, y := i%width, (i/width)%height
		if r, err = engine.Dispatch(ctx, mover, action.CreateMove(s, x, y), r); err != nil {
			return err
		}
	}
	if !r.Converged() {
		return errors.New("replicas diverged")
	}
	final, _ := r.Get(board.Player1)
	if err := final.Log().Verify(); err != nil {
		return err
	}
	rebuilt, err := replica.RebuildBoard(final)
	if err != nil {
		return err
	}
	if !rebuilt.Equal(final.Board()) {
		return errors.New("log does not reproduce the board")
	}
	opts.logger.Info("simulation finished", "moves", final.Log().Len(), "rejected", rejected)

	if opts.plain {
		return printPlain(out, final)
	}
	return printStyled(out, final)
}

func printPlain(out io.Writer, s replica.State) error {
	claims := s.Board().Claims()
	if _, err := fmt.Fprintf(out, "%s\nturn: %d\nmoves: %d\n", s.Board(), s.Turn(), s.Log().Len()); err != nil {
		return err
	}
	for _, p := range board.Players() {
		if _, err := fmt.Fprintf(out, "player %d: %d\n", p, claims[p]); err != nil {
			return err
		}
	}
	return nil
}

func printStyled(out io.Writer, s replica.State) error {
	grid, err := renderBoard(s.Board())
	if err != nil {
		return err
	}
	claims, err := renderClaims(s.Board())
	if err != nil {
		return err
	}
	moves := pterm.Bold.Sprintf("moves: %d", s.Log().Len())
	_, err = fmt.Fprintf(out, "%s\n%s\n%s\n%s\n", grid, claims, moves, turnBanner(s.Turn(), 0))
	return err
}
