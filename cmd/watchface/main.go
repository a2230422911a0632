package main

import (
	"fmt"
	"log"
	"os"
	"runtime"
	_ "time/tzdata"
)

const version = "0.1.0"

func main() {
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	// No arguments launches the interactive terminal face
	if len(os.Args) < 2 || os.Args[1] == "tui" {
		args := []string{}
		if len(os.Args) > 2 {
			args = os.Args[2:]
		}
		if err := runTUI(args); err != nil {
			log.Fatalf("TUI error: %v", err)
		}
		return
	}

	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "png":
		err = runPNG(args)
	case "frame":
		err = runFrame(args, os.Stdout)
	case "simulate":
		err = runSimulate(args, os.Stdout)
	case "oled":
		err = runOLED(args)
	case "version":
		fmt.Printf("watchface v%s\n", version)
		fmt.Printf("Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		return
	case "help", "-h", "--help":
		usage()
		return
	default:
		log.Fatalf("ERROR: unknown command %q (try 'watchface help')", cmd)
	}

	if err != nil {
		log.Fatalf("ERROR: %s: %v", cmd, err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Watchface - Analog Watch Face Engine

Usage:
  watchface [tui] [-config file] [-metrics addr] [-log file]
      Run the face in the terminal

  watchface png -o face.png [-at 10:10:30] [-ambient] [-size 320]
      Render one frame to a PNG file

  watchface frame [-at 10:10:30] [-ambient] [-size 320]
      Print one frame's drawing primitives as JSON

  watchface simulate [-duration 1h] [-jitter 20ms] [-script show@0s,idle@30s]
      Run the tick scheduler in simulated time and report drift

  watchface oled [-bus name] [-width 128] [-height 64] [-idle 30s] [-metrics addr]
      Drive an SSD1306 I2C panel

  watchface version
      Show version and platform information

  watchface help
      Show this help message

Keys (tui):
  v  toggle visibility      a  toggle ambient
  l  toggle low-bit mode    z  cycle timezone
  q  quit

Configuration:
  Settings are read from the YAML file named by -config or WATCHFACE_CONFIG,
  then overridden by WATCHFACE_TICK_INTERVAL, WATCHFACE_ZONE,
  WATCHFACE_ZONE_POLL_INTERVAL and WATCHFACE_LOW_BIT_AMBIENT.
`)
}
