package main

import (
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/risa-org/signalfish/client"
	"github.com/risa-org/signalfish/protocol"
	"github.com/risa-org/signalfish/store"
	"github.com/risa-org/signalfish/store/file"
	"github.com/spf13/cobra"
)

func lobbyCmd(opts *connectOptions) *cobra.Command {
	var (
		game       string
		name       string
		room       string
		maxPlayers uint8
		ready      bool
		seatFile   string
		authToken  string
	)

	cmd := &cobra.Command{
		Use:   "lobby",
		Short: "Join a room and print lobby events",
		Long: `Authenticate, join (or create) a room and print every event until
the server closes the connection or you press Ctrl+C.

Examples:
  sfclient lobby --game my-game --name Alice
  sfclient lobby --game my-game --name Bob --room ABC123 --ready
  sfclient lobby --game my-game --name Alice --seat-file seats.json --auth-token tok`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var seats store.Store
			if seatFile != "" {
				s, err := file.New(seatFile)
				if err != nil {
					return err
				}
				seats = s
			}

			params := client.NewJoinRoomParams(game, name)
			if room != "" {
				params = params.WithRoomCode(room)
			}
			if cmd.Flags().Changed("max-players") {
				params = params.WithMaxPlayers(maxPlayers)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			c, events, err := opts.start(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			return run(ctx, c, events, out, func(ev client.Event) error {
				switch ev := ev.(type) {
				case protocol.Authenticated:
					return c.JoinRoom(params)
				case protocol.AuthenticationError:
					return ev.Err()
				case protocol.RoomJoinFailed:
					return ev.Err()
				case protocol.RoomJoined:
					if seats != nil {
						seat := store.Seat{
							GameName:  game,
							PlayerID:  ev.PlayerID,
							RoomID:    ev.RoomID,
							RoomCode:  ev.RoomCode,
							AuthToken: authToken,
							SavedAt:   time.Now(),
						}
						if err := seats.Save(game, seat); err != nil {
							return err
						}
						success(out, "seat saved to %s", seatFile)
					}
					if ready {
						return c.SetReady()
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&game, "game", "", "Game name")
	cmd.Flags().StringVar(&name, "name", "", "Player name")
	cmd.Flags().StringVar(&room, "room", "", "Room code to join; empty quick-matches")
	cmd.Flags().Uint8Var(&maxPlayers, "max-players", 0, "Room size when creating a room")
	cmd.Flags().BoolVar(&ready, "ready", false, "Mark the player ready after joining")
	cmd.Flags().StringVar(&seatFile, "seat-file", "", "Save the seat here for a later reconnect")
	cmd.Flags().StringVar(&authToken, "auth-token", "", "Reconnect token to store with the seat")
	cmd.MarkFlagRequired("game")
	cmd.MarkFlagRequired("name")

	return cmd
}

func reconnectCmd(opts *connectOptions) *cobra.Command {
	var (
		game     string
		seatFile string
		maxAge   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "reconnect",
		Short: "Resume a seat saved by lobby --seat-file",
		RunE: func(cmd *cobra.Command, args []string) error {
			seats, err := file.New(seatFile)
			if err != nil {
				return err
			}
			seat, ok := seats.Load(game)
			if !ok {
				return errors.New("no saved seat for " + game)
			}
			if seat.Expired(maxAge, time.Now()) {
				seats.Delete(game)
				return errors.New("the saved seat is too old to resume")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			c, events, err := opts.start(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			return run(ctx, c, events, out, func(ev client.Event) error {
				switch ev := ev.(type) {
				case protocol.Authenticated:
					return c.Reconnect(seat.PlayerID, seat.RoomID, seat.AuthToken)
				case protocol.AuthenticationError:
					return ev.Err()
				case protocol.Reconnected:
					seat.RoomCode = ev.RoomCode
					seat.SavedAt = time.Now()
					return seats.Save(game, seat)
				case protocol.ReconnectionFailed:
					seats.Delete(game)
					return ev.Err()
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&game, "game", "", "Game name the seat was saved under")
	cmd.Flags().StringVar(&seatFile, "seat-file", "", "Seat file written by lobby")
	cmd.Flags().DurationVar(&maxAge, "max-age", 5*time.Minute, "Refuse seats older than this; 0 disables the check")
	cmd.MarkFlagRequired("game")
	cmd.MarkFlagRequired("seat-file")

	return cmd
}
