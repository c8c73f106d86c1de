package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BertoldVdb/hidhub/gohid"
	"github.com/BertoldVdb/hidhub/hubcore"
	"github.com/alecthomas/kong"
	"github.com/fatih/color"
)

type Context struct {
	backend gohid.Backend
}

var CLI struct {
	Verbose int `optional short:"v" help:"Verbosity bitmask: 1=basic events, 2=periodic stats, 4=hub frames, 8=inter-device frames, 16=discarded frames."`

	Run     RunCmd     `cmd default:"1" help:"Relay raw HID reports between attached devices."`
	ListDev ListHIDCmd `cmd help:"List raw HID devices."`
}

type RunCmd struct {
	CommandID int `optional type:"hex" default:"27" help:"First byte of every hub frame."`
	UsagePage int `optional type:"hex" default:"FF60" help:"Usage page of the raw HID interface."`
	Usage     int `optional type:"hex" default:"61" help:"Usage of the raw HID interface."`

	DiscoveryPeriod time.Duration `optional default:"1s" help:"Delay between device enumerations."`

	NoSleep        bool          `optional help:"Do not sleep between I/O passes."`
	NoSmartSleep   bool          `optional help:"Sleep unconditionally instead of only when no messages flow."`
	SleepStep      time.Duration `optional help:"Sleep step duration, defaults to the platform tick."`
	SmartSleepWait time.Duration `optional default:"100ms" help:"Inactivity before smart sleep starts sleeping."`

	StatsScreen bool `optional help:"Redraw stats in place instead of appending."`
}

func (r *RunCmd) Run(c *Context) error {
	verboseBasic := CLI.Verbose&1 != 0
	verboseStats := CLI.Verbose&2 != 0
	verboseHub := CLI.Verbose&4 != 0
	verboseDevice := CLI.Verbose&8 != 0
	verboseDiscard := CLI.Verbose&16 != 0

	if CLI.Verbose > 0 {
		fmt.Println("Verbose:")
		if verboseBasic {
			fmt.Println("  Printing basic status messages.")
		}
		if verboseStats {
			fmt.Println("  Printing stats.")
		}
		if verboseHub {
			fmt.Println("  Printing messages to and from the hub.")
		}
		if verboseDevice {
			fmt.Println("  Printing messages between registered devices.")
		}
		if verboseDiscard {
			fmt.Println("  Printing discarded reports.")
		}
	}

	hubColor := color.New(color.FgCyan)
	deviceColor := color.New(color.FgGreen)
	discardColor := color.New(color.FgRed)

	config := hubcore.Config{
		CommandID:       byte(r.CommandID),
		UsagePage:       uint16(r.UsagePage),
		Usage:           uint16(r.Usage),
		DiscoveryPeriod: r.DiscoveryPeriod,

		SleepDisabled:      r.NoSleep,
		SmartSleepDisabled: r.NoSmartSleep,
		SleepStep:          r.SleepStep,
		SmartSleepWait:     r.SmartSleepWait,

		LogFunc: func(class int, format string, param ...interface{}) {
			switch class {
			case hubcore.LogBasic:
				if verboseBasic {
					fmt.Printf(format+"\n", param...)
				}
			case hubcore.LogHubFrame:
				if verboseHub {
					hubColor.Printf(format+"\n", param...)
				}
			case hubcore.LogDeviceFrame:
				if verboseDevice {
					deviceColor.Printf(format+"\n", param...)
				}
			case hubcore.LogDiscardFrame:
				if verboseDiscard {
					discardColor.Printf(format+"\n", param...)
				}
			}
		},
	}

	if verboseStats {
		config.StatsFunc = func(snapshot hubcore.StatsSnapshot) {
			printStats(snapshot, r.StatsScreen)
		}
	}

	hub := hubcore.New(c.backend, config)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM, syscall.SIGABRT)
	exitSignal := make(chan syscall.Signal, 1)
	go func() {
		sig := <-signals
		if s, ok := sig.(syscall.Signal); ok {
			exitSignal <- s
		}
		hub.Shutdown()
	}()

	if err := hub.Run(); err != nil {
		return err
	}

	// The process exits with the signal number, 0 on a clean stop.
	select {
	case sig := <-exitSignal:
		c.backend.Exit()
		os.Exit(int(sig))
	default:
	}
	return nil
}

func main() {
	k, err := kong.New(&CLI,
		kong.NamedMapper("hex", intMapper{base: 16}))
	if err != nil {
		fmt.Println(err)
		return
	}

	ctx, err := k.Parse(os.Args[1:])
	if err != nil {
		fmt.Println(err)
		return
	}

	c := &Context{backend: gohid.NewBackend()}
	if err := c.backend.Init(); err != nil {
		fmt.Println("Failed to initialize HID backend:", err)
		os.Exit(1)
	}
	defer c.backend.Exit()

	err = ctx.Run(c)
	ctx.FatalIfErrorf(err)
}
