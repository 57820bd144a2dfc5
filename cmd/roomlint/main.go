// Package main provides roomlint, a content-pipeline check that loads a
// directory of room YAML files and reports validation and teleporter
// consistency problems before they reach a running server.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hollowroot/verse/internal/world"
)

func main() {
	roomsDir := flag.String("rooms", "", "path to room YAML files directory")
	flag.Parse()

	if *roomsDir == "" {
		fmt.Fprintln(os.Stderr, "usage: roomlint -rooms <dir>")
		os.Exit(1)
	}

	start := time.Now()
	rooms, err := world.LoadRoomsFromDir(*roomsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	catalog, err := world.NewCatalog(rooms)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := catalog.ValidateTeleporters(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	for _, room := range catalog.Rooms() {
		fmt.Printf("%s: %d teleporters, %d objects\n", room.ID, len(room.Teleporters), len(room.Objects))
	}
	fmt.Printf("%d rooms ok in %s\n", catalog.RoomCount(), time.Since(start).Round(time.Millisecond))
}
