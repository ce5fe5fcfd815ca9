package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/roomserver/internal/protocol"
)

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Room commands",
	}

	cmd.AddCommand(newRoomCreateCmd())
	cmd.AddCommand(newRoomGetCmd())
	cmd.AddCommand(newRoomJoinCmd())
	cmd.AddCommand(newRoomLeaveCmd())
	cmd.AddCommand(newRoomStartCmd())
	cmd.AddCommand(newRoomConfigureCmd())

	return cmd
}

// sendCommand runs one command over a fresh session and prints the room
func sendCommand(cmd *cobra.Command, command protocol.Command) error {
	if client.Token() == "" {
		return errors.New("no token configured; pass --token or run 'roomctl token save'")
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	socket, err := client.Dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = socket.Close() }()

	room, err := socket.Do(ctx, command)
	if err != nil {
		return err
	}

	NewOutput(cfg.Output).Print(room)
	return nil
}

func newRoomCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a room led by you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendCommand(cmd, protocol.CreateRoom{JWT: client.Token()})
		},
	}
}

func newRoomGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <room-id>",
		Short: "Show a room by join code or private id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			var result Room
			if err := client.Get(ctx, fmt.Sprintf("/api/v1/rooms/%s", args[0]), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newRoomJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <room-id>",
		Short: "Join a room by join code or private id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendCommand(cmd, protocol.JoinRoom{JWT: client.Token(), RoomID: protocol.RoomRef(args[0])})
		},
	}
}

func newRoomLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <room-id>",
		Short: "Leave a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendCommand(cmd, protocol.LeaveRoom{JWT: client.Token(), RoomID: protocol.RoomRef(args[0])})
		},
	}
}

func newRoomStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <room-id>",
		Short: "Start a room (leader only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendCommand(cmd, protocol.StartRoom{JWT: client.Token(), RoomID: protocol.RoomRef(args[0])})
		},
	}
}

func newRoomConfigureCmd() *cobra.Command {
	var (
		maxPlayers uint8
		private    bool
	)

	cmd := &cobra.Command{
		Use:   "configure <room-id>",
		Short: "Change room settings (leader only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := protocol.ConfigureRoom{JWT: client.Token(), RoomID: protocol.RoomRef(args[0])}
			if cmd.Flags().Changed("max-players") {
				command.MaxPlayers = &maxPlayers
			}
			if cmd.Flags().Changed("private") {
				command.Private = &private
			}
			if command.MaxPlayers == nil && command.Private == nil {
				return errors.New("nothing to change; pass --max-players or --private")
			}
			return sendCommand(cmd, command)
		},
	}

	cmd.Flags().Uint8Var(&maxPlayers, "max-players", 0, "Maximum number of players")
	cmd.Flags().BoolVar(&private, "private", false, "Hide the room from lobby browsers")

	return cmd
}
