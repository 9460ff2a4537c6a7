// Package main is the command line entry point for tunedeck.
//
// tunedeck indexes local audio files into a library, keeps playlists and a
// playback queue, and follows library folders for changes.
//
// Build:
//
//	go build -o build/tunedeck ./cmd
//
// Run:
//
//	./build/tunedeck scan ~/Music
//	./build/tunedeck list --sort artist
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
