package main

import (
	"fmt"

	"github.com/BertoldVdb/hidhub/hubcore"
	"github.com/inancgumus/screen"
)

// printStats renders one stats snapshot. With useScreen the terminal is
// redrawn in place, like a tiny top.
func printStats(snapshot hubcore.StatsSnapshot, useScreen bool) {
	if useScreen {
		screen.Clear()
		screen.MoveTopLeft()
	}

	deltaTimeSeconds := float64(snapshot.IntervalMs) / 1000.0
	fmt.Printf("Main loop ran %d times (%.2f per second).\n",
		snapshot.Iterations, float64(snapshot.Iterations)/deltaTimeSeconds)
	fmt.Println("Message counts:")
	for _, counter := range snapshot.Counters {
		fmt.Printf("  [0x%02x -> 0x%02x]: %4d (%7.2f per second).\n",
			counter.OriginDeviceID, counter.DestinationDeviceID,
			counter.Count, float64(counter.Count)/deltaTimeSeconds)
	}
}
