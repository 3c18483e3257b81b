// wlcanvas-demo opens an animated test window: a moving gradient driven by
// the frame scheduler's delta time, with input events logged and an
// auxiliary pipe source ticking in the background to exercise the
// descriptor multiplexer.
package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sys/unix"

	"github.com/bnema/wlcanvas"
	"github.com/bnema/wlcanvas/internal/logger"
)

var (
	// Version is set during build
	Version = "0.1.0-dev"

	rootCmd = &cobra.Command{
		Use:          "wlcanvas-demo",
		Short:        "wlcanvas demo window",
		Long:         `Opens a toplevel window rendering an animated gradient through the wlcanvas runtime and logs the normalized input events it receives. Press Escape or close the window to quit.`,
		SilenceUsage: true,
		RunE:         run,
	}
)

func init() {
	rootCmd.Version = Version
	rootCmd.Flags().StringP("title", "t", "wlcanvas demo", "Window title")
	rootCmd.Flags().IntP("width", "W", 800, "Initial logical width")
	rootCmd.Flags().IntP("height", "H", 600, "Initial logical height")
	rootCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")

	viper.BindPFlag("demo.title", rootCmd.Flags().Lookup("title"))
	viper.BindPFlag("demo.width", rootCmd.Flags().Lookup("width"))
	viper.BindPFlag("demo.height", rootCmd.Flags().Lookup("height"))
	viper.BindPFlag("demo.log_level", rootCmd.Flags().Lookup("log-level"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig merges an optional wlcanvas.toml; flags win over file values.
func loadConfig() {
	viper.SetConfigName("wlcanvas")
	viper.SetConfigType("toml")
	if dir, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(dir)
	}
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err == nil {
		logger.Debug("config loaded", "file", viper.ConfigFileUsed())
	}
}

func run(cmd *cobra.Command, args []string) error {
	loadConfig()
	logger.SetLevel(viper.GetString("demo.log_level"))

	sess, err := wlcanvas.Connect()
	if err != nil {
		return err
	}
	defer sess.Shutdown()

	win, err := sess.CreateWindow(
		viper.GetString("demo.title"),
		viper.GetInt("demo.width"),
		viper.GetInt("demo.height"),
	)
	if err != nil {
		return err
	}

	var elapsed time.Duration
	win.SetDrawHandler(func(f *wlcanvas.Frame, dt time.Duration) {
		elapsed += dt
		paintGradient(f, elapsed.Seconds())
	})

	win.SetEventHandler(func(ev wlcanvas.Event) {
		switch e := ev.(type) {
		case wlcanvas.CloseEvent:
			logger.Info("window closed")
		case wlcanvas.ResizeEvent:
			logger.Info("resized", "width", e.Width, "height", e.Height)
		case wlcanvas.ScaleEvent:
			logger.Info("scale changed", "scale", e.Scale)
		case wlcanvas.PointerButtonEvent:
			logger.Info("button", "code", e.Code, "pressed", e.Pressed, "mask", sess.PointerButtons())
		case wlcanvas.ScrollEvent:
			logger.Info("scroll", "delta", e.Delta, "axis", e.Axis)
		case wlcanvas.KeyEvent:
			if e.Pressed {
				logger.Info("key", "code", e.Code, "text", e.Text, "mods", e.Mods)
			}
			// Escape quits.
			if e.Pressed && e.Sym == 0xff1b {
				win.Close()
			}
		case wlcanvas.PointerEnterEvent:
			win.SetCursorShape("crosshair")
		}
	})

	// A ticker goroutine feeding a pipe stands in for a decode worker
	// signalling completion through a descriptor.
	stop, err := startTicker(sess)
	if err != nil {
		return err
	}
	defer stop()

	return sess.Run()
}

// startTicker writes to a pipe once a second from a foreign goroutine; the
// loop invokes the registered callback back on its own goroutine.
func startTicker(sess *wlcanvas.Session) (func(), error) {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, err
	}
	if err := sess.RegisterPoll(p[0], func(fd int, data any) {
		var buf [8]byte
		unix.Read(fd, buf[:])
		logger.Debug("tick", "source", data)
	}, "worker-pipe"); err != nil {
		unix.Close(p[0])
		unix.Close(p[1])
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				unix.Write(p[1], []byte{1})
			case <-done:
				return
			}
		}
	}()
	return func() {
		close(done)
		sess.UnregisterPoll(p[0])
		unix.Close(p[0])
		unix.Close(p[1])
	}, nil
}

// paintGradient fills the frame with a time-shifted color ramp.
func paintGradient(f *wlcanvas.Frame, t float64) {
	shift := uint32((math.Sin(t) + 1) * 127)
	for y := 0; y < f.Height; y++ {
		row := f.Pix[y*f.Stride:]
		g := uint32(y * 255 / max(f.Height, 1))
		for x := 0; x < f.Width; x++ {
			r := uint32(x*255/max(f.Width, 1)) ^ shift
			px := 0xff000000 | r<<16 | g<<8 | shift
			binary.LittleEndian.PutUint32(row[x*4:], px)
		}
	}
}
