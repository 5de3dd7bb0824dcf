// fakempv runs the in-memory mpv IPC server on a real socket, for manual
// testing of the remote without an mpv install.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aeolun/mpvremote/pkg/mpvtest"
)

func main() {
	tcpAddr := flag.String("tcp", "", "TCP listen address (host:port)")
	socketPath := flag.String("socket", "", "Unix socket path")
	flag.Parse()

	if *tcpAddr == "" && *socketPath == "" {
		*tcpAddr = "127.0.0.1:9331"
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	srv := mpvtest.NewServer(map[string]any{
		"idle-active":      false,
		"pause":            false,
		"paused-for-cache": false,
		"mute":             false,
		"volume":           float64(70),
		"duration":         float64(5400),
		"time-pos":         float64(0),
		"media-title":      "Big Buck Bunny",
		"loop-file":        false,
		"loop-playlist":    false,
	})
	srv.SetLogger(logger)

	switch {
	case *tcpAddr != "":
		addr, err := srv.ListenTCP(*tcpAddr)
		if err != nil {
			log.Fatalf("Failed to listen on %s: %v", *tcpAddr, err)
		}
		logger.Printf("Fake mpv listening on tcp://%s", addr)
	case *socketPath != "":
		if err := srv.ListenUnix(*socketPath); err != nil {
			log.Fatalf("Failed to listen on %s: %v", *socketPath, err)
		}
		logger.Printf("Fake mpv listening on unix://%s", *socketPath)
	}
	defer srv.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Printf("Shutting down")
}
