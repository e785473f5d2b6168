// co2mond reads a USB CO2/temperature sensor forever and publishes
// deduplicated readings to flat files or InfluxDB.
package main

import (
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/mattn/go-isatty"
	alive "github.com/temoto/alive/v2"

	"github.com/airlab/co2mond/co2mon"
	"github.com/airlab/co2mond/log2"
	"github.com/airlab/co2mond/monitor"
	"github.com/airlab/co2mond/sink"
	"github.com/airlab/co2mond/state"
)

func main() {
	flagConfig := flag.String("config", "", "path to HCL config file")
	flagDaemon := flag.Bool("d", false, "daemon mode: suppress console output")
	flagUnknown := flag.Bool("u", false, "print values for unknown items")
	flagDatadir := flag.String("D", "", "store values from the sensor in this directory")
	flagDevice := flag.String("f", "", "path to the device (e.g. /dev/hidraw0)")
	flagPidfile := flag.String("p", "", "write PID to this file")
	flagLogfile := flag.String("l", "", "write diagnostic information to this file")
	flagInfluxHost := flag.String("H", "", "InfluxDB hostname (default: "+state.DefaultInfluxHost+")")
	flagInfluxPort := flag.Int("P", 0, "InfluxDB port (default: 8086)")
	flagInfluxDB := flag.String("B", "", "InfluxDB database (needed to turn on InfluxDB delivery)")
	flagInfluxUser := flag.String("U", "", "InfluxDB username (optional)")
	flagInfluxPass := flag.String("W", "", "InfluxDB password (optional)")
	flag.Parse()

	log := log2.NewStderr(log2.LInfo)
	if sdnotify(log, "STATUS=starting") {
		// under systemd, journal adds timestamps
		log.SetFlags(log2.LServiceFlags)
	} else if isatty.IsTerminal(os.Stderr.Fd()) {
		log.SetFlags(log2.LInteractiveFlags)
	} else {
		log.SetFlags(log2.LStdFlags)
	}

	cfg := &state.Config{}
	if *flagConfig != "" {
		cfg = state.MustReadConfig(log, state.NewOsFullReader(), *flagConfig)
	}
	if *flagDaemon {
		cfg.Daemon = true
	}
	if *flagUnknown {
		cfg.PrintUnknown = true
	}
	if *flagDatadir != "" {
		cfg.Datadir = *flagDatadir
	}
	if *flagDevice != "" {
		cfg.Device.Path = *flagDevice
	}
	if *flagPidfile != "" {
		cfg.PidFile = *flagPidfile
	}
	if *flagLogfile != "" {
		cfg.LogFile = *flagLogfile
	}
	if *flagInfluxHost != "" {
		cfg.Influx.Host = *flagInfluxHost
	}
	if *flagInfluxPort != 0 {
		cfg.Influx.Port = *flagInfluxPort
	}
	if *flagInfluxDB != "" {
		cfg.Influx.Database = *flagInfluxDB
	}
	if *flagInfluxUser != "" {
		cfg.Influx.Username = *flagInfluxUser
	}
	if *flagInfluxPass != "" {
		cfg.Influx.Password = *flagInfluxPass
	}

	if cfg.Daemon && cfg.Datadir == "" && !cfg.Influx.Enabled() {
		log.Fatal("it is useless to use -d without -D or -B")
	}

	// Everything below up to the supervisor start is startup-level:
	// any failure exits non-zero immediately.

	if cfg.Datadir != "" {
		abs, err := filepath.Abs(cfg.Datadir)
		if err == nil {
			abs, err = filepath.EvalSymlinks(abs)
		}
		if err != nil {
			log.Fatal(errors.Annotatef(err, "datadir=%s", cfg.Datadir))
		}
		fi, err := os.Stat(abs)
		if err != nil {
			log.Fatal(errors.Annotatef(err, "datadir=%s", abs))
		}
		if !fi.IsDir() {
			log.Fatalf("datadir=%s is not a directory", abs)
		}
		cfg.Datadir = abs
	}

	if cfg.PidFile != "" {
		f, err := os.OpenFile(cfg.PidFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
		if err != nil {
			log.Fatal(errors.Annotatef(err, "pidfile=%s", cfg.PidFile))
		}
		err = sink.WriteLocked(f, strconv.Itoa(os.Getpid()))
		f.Close()
		if err != nil {
			log.Fatal(errors.Annotatef(err, "pidfile=%s", cfg.PidFile))
		}
	}

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal(errors.Annotatef(err, "logfile=%s", cfg.LogFile))
		}
		log = log2.NewWriter(f, log2.LInfo)
		log.SetFlags(log2.LStdFlags)
	}

	var files monitor.FileWriter
	if cfg.Datadir != "" {
		files = sink.NewFileSink(cfg.Datadir, log)
	}
	var metrics monitor.MetricsPublisher
	if cfg.Influx.Enabled() {
		is, err := sink.NewInfluxSink(cfg.Influx.Addr(), cfg.Influx.Database, cfg.Influx.Username, cfg.Influx.Password, log)
		if err != nil {
			log.Fatal(errors.ErrorStack(err))
		}
		defer is.Close()
		metrics = is
	}
	var console *os.File
	if !cfg.Daemon {
		console = os.Stdout
	}

	a := alive.NewAlive()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Infof("signal %v, stopping", sig)
		a.Stop()
	}()

	router := monitor.NewRouter(log, files, metrics, consoleWriter(console), cfg.PrintUnknown)
	sv := &monitor.Supervisor{
		Log:   log,
		Alive: a,
		Open: func() (co2mon.Device, error) {
			if cfg.Device.Path != "" {
				return co2mon.Open(cfg.Device.Path, log)
			}
			return co2mon.OpenAny(log)
		},
		Session: &monitor.Session{Log: log, Alive: a, Router: router},
	}

	sdnotify(log, daemon.SdNotifyReady)
	log.Infof("co2mond running datadir=%s influx=%t", cfg.Datadir, cfg.Influx.Enabled())
	sv.Run()
	a.Wait()
}

// keeps the nil *os.File from becoming a non-nil io.Writer
func consoleWriter(f *os.File) io.Writer {
	if f == nil {
		return nil
	}
	return f
}

func sdnotify(log *log2.Log, s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}
