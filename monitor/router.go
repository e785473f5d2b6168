// Package monitor contains the reading pipeline: Router deduplicates
// decoded readings and dispatches them to the configured sink,
// Session drives one open device, Supervisor reconnects forever.
package monitor

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/airlab/co2mond/co2mon"
	"github.com/airlab/co2mond/log2"
)

const (
	labelTamb = "Tamb"
	labelCntR = "CntR"

	measurementTamb = "temp"
	measurementCntR = "co2"

	heartbeatName = "heartbeat"
)

// last-seen sentinel, distinct from every uint16
const noValue = -1

// FileWriter persists the latest value of a named metric.
type FileWriter interface {
	Write(name, value string) error
}

// MetricsPublisher pushes one timestamped value upstream.
type MetricsPublisher interface {
	PublishFloat(measurement string, value float64, ts time.Time) error
	PublishInt(measurement string, value int64, ts time.Time) error
}

// Router dispatches each decoded reading to at most one sink,
// suppressing values unchanged since the last successful delivery.
// The metrics endpoint takes priority over the file sink when both
// are configured; the heartbeat file is maintained only in file-sink
// mode. Single goroutine only.
type Router struct {
	log          *log2.Log
	files        FileWriter
	metrics      MetricsPublisher
	console      io.Writer
	printUnknown bool
	now          func() time.Time
	last         [256]int32
}

func NewRouter(log *log2.Log, files FileWriter, metrics MetricsPublisher, console io.Writer, printUnknown bool) *Router {
	self := &Router{
		log:          log,
		files:        files,
		metrics:      metrics,
		console:      console,
		printUnknown: printUnknown,
		now:          time.Now,
	}
	for i := range self.last {
		self.last[i] = noValue
	}
	return self
}

func decodeTemperature(raw uint16) float64 {
	return float64(raw)*0.0625 - 273.15
}

func (self *Router) Route(r co2mon.Reading) {
	switch r.Code {
	case co2mon.CodeTamb:
		value := fmt.Sprintf("%.4f", decodeTemperature(r.Raw))
		self.print(labelTamb, value)
		self.commit(r, self.sendTamb(value))
		self.heartbeat()
	case co2mon.CodeCntR:
		value := strconv.Itoa(int(r.Raw))
		self.print(labelCntR, value)
		self.commit(r, self.sendCntR(value))
		self.heartbeat()
	default:
		if self.printUnknown {
			self.print(fmt.Sprintf("0x%02x", r.Code), strconv.Itoa(int(r.Raw)))
		}
		// unrecognized codes are never delivered, only remembered
		self.last[r.Code] = int32(r.Raw)
	}
}

// commit delivers through send and advances last-seen state only on
// success, so a failed delivery is retried on the next frame carrying
// the same value. send==nil means console-only mode: nothing to
// protect, state advances unconditionally.
func (self *Router) commit(r co2mon.Reading, send func() error) {
	if self.last[r.Code] == int32(r.Raw) {
		return
	}
	if send != nil {
		if err := send(); err != nil {
			self.log.Errorf("deliver code=%02x raw=%d: %v", r.Code, r.Raw, err)
			return
		}
	}
	self.last[r.Code] = int32(r.Raw)
}

func (self *Router) sendTamb(value string) func() error {
	switch {
	case self.metrics != nil:
		return func() error {
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return err
			}
			return self.metrics.PublishFloat(measurementTamb, v, self.now())
		}
	case self.files != nil:
		return func() error { return self.files.Write(labelTamb, value) }
	}
	return nil
}

func (self *Router) sendCntR(value string) func() error {
	switch {
	case self.metrics != nil:
		return func() error {
			v, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			return self.metrics.PublishInt(measurementCntR, v, self.now())
		}
	case self.files != nil:
		return func() error { return self.files.Write(labelCntR, value) }
	}
	return nil
}

// heartbeat lets an external watchdog notice a stalled session even
// while readings are unchanged. File-sink mode only.
func (self *Router) heartbeat() {
	if self.files == nil || self.metrics != nil {
		return
	}
	hb := strconv.FormatInt(self.now().Unix(), 10)
	if err := self.files.Write(heartbeatName, hb); err != nil {
		self.log.Errorf("heartbeat: %v", err)
	}
}

func (self *Router) print(label, value string) {
	if self.console == nil {
		return
	}
	fmt.Fprintf(self.console, "%s\t%s\n", label, value)
}
