package main

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tcriess/gift-circle/config"
	"github.com/tcriess/gift-circle/engine"
	"github.com/tcriess/gift-circle/globals"
	"github.com/tcriess/gift-circle/persistence"
	"github.com/tcriess/gift-circle/presence"
	"github.com/tcriess/gift-circle/types"
)

// A very simple CLI tool for the administration of gift-circle rooms.

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
)

func main() {
	log.SetFlags(0)

	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)

	pflag.Parse()

	globalConfig, err := config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		panic(err)
	}

	globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))

	persister, err := persistence.NewPersister(globalConfig)
	if err != nil {
		panic(err)
	}
	if persister == nil {
		panic("no persistence configured")
	}
	defer persister.Close()

	// engine without a sink: mutations still persist events, there is
	// just nobody connected to broadcast to
	eng := engine.New(persister, presence.NewTracker(nil), globalConfig)

	var cmdShow = &cobra.Command{
		Use:   "show",
		Short: "Show rooms or members",
		Long:  `show is for printing room or member information.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	var cmdShowRooms = &cobra.Command{
		Use:   "rooms",
		Short: "Show rooms",
		Long:  `show rooms lists all rooms.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			rooms, err := persister.GetRooms()
			if err != nil {
				globals.AppLogger.Error("could not get rooms", "error", err)
				return
			}
			r, err := json.Marshal(rooms)
			if err != nil {
				globals.AppLogger.Error("could not marshal rooms", "error", err)
				return
			}
			fmt.Println(string(r))
		},
	}
	var cmdShowRoom = &cobra.Command{
		Use:   "room [room id]",
		Short: "Show room",
		Long:  `show room prints the full snapshot of the room with the given id.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			snapshot, err := eng.Snapshot(args[0])
			if err != nil {
				globals.AppLogger.Error("could not get room", "error", err)
				return
			}
			r, err := json.Marshal(snapshot)
			if err != nil {
				globals.AppLogger.Error("could not marshal snapshot", "error", err)
				return
			}
			fmt.Println(string(r))
		},
	}
	var cmdShowMembers = &cobra.Command{
		Use:   "members [room id]",
		Short: "Show members",
		Long:  `show members lists the members of the room with the given id.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			members, err := persister.GetMembers(args[0])
			if err != nil {
				globals.AppLogger.Error("could not get members", "error", err)
				return
			}
			m, err := json.Marshal(members)
			if err != nil {
				globals.AppLogger.Error("could not marshal members", "error", err)
				return
			}
			fmt.Println(string(m))
		},
	}
	var cmdDelete = &cobra.Command{
		Use:   "delete",
		Short: "Delete rooms",
		Long:  `delete removes rooms including all their entries.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	var cmdDeleteRoom = &cobra.Command{
		Use:   "room [room id]",
		Short: "Delete room",
		Long:  `delete room removes the room with the given id and everything in it.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			room := types.Room{Id: args[0]}
			err := persister.DeleteRoom(&room)
			if err != nil {
				globals.AppLogger.Error("could not delete room", "error", err)
				return
			}
		},
	}
	var cmdExpire = &cobra.Command{
		Use:   "expire",
		Short: "Delete expired rooms",
		Long:  `expire removes all rooms whose expiry time has passed.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			rooms, err := persister.GetRooms()
			if err != nil {
				globals.AppLogger.Error("could not get rooms", "error", err)
				return
			}
			now := time.Now()
			for _, room := range rooms {
				if !room.Expired(now) {
					continue
				}
				if err := persister.DeleteRoom(room); err != nil {
					globals.AppLogger.Error("could not delete room", "room", room.Id, "error", err)
					continue
				}
				fmt.Println(room.Id)
			}
		},
	}
	var cmdSummary = &cobra.Command{
		Use:   "summary [room id]",
		Short: "Show room summary",
		Long:  `summary prints the accepted commitments of the room with the given id, grouped per member.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			summary, err := eng.Summary(args[0])
			if err != nil {
				globals.AppLogger.Error("could not get summary", "error", err)
				return
			}
			s, err := json.Marshal(summary)
			if err != nil {
				globals.AppLogger.Error("could not marshal summary", "error", err)
				return
			}
			fmt.Println(string(s))
		},
	}

	var rootCmd = &cobra.Command{Use: "gift-circle-admin"}
	rootCmd.AddCommand(cmdShow, cmdDelete, cmdExpire, cmdSummary)
	cmdShow.AddCommand(cmdShowRooms, cmdShowRoom, cmdShowMembers)
	cmdDelete.AddCommand(cmdDeleteRoom)
	if err := rootCmd.Execute(); err != nil {
		globals.AppLogger.Error("could not execute command", "error", err)
	}
}
