package monitor

import (
	"time"

	alive "github.com/temoto/alive/v2"

	"github.com/airlab/co2mond/co2mon"
	"github.com/airlab/co2mond/log2"
)

// Reconnect delay is a fixed interval on purpose: the common failure
// is simply an unplugged sensor, growing backoff would only delay
// recovery after it returns.
const DefaultRetryDelay = 1 * time.Second

// Supervisor is the outermost control flow: open the device, run a
// session to completion, close, repeat forever. Open failures are
// reported once per outage to keep the log quiet while the sensor
// is absent.
type Supervisor struct {
	Log        *log2.Log
	Alive      *alive.Alive
	Open       func() (co2mon.Device, error)
	Session    *Session
	RetryDelay time.Duration
}

func (self *Supervisor) Run() {
	delay := self.RetryDelay
	if delay == 0 {
		delay = DefaultRetryDelay
	}
	errorShown := false
	for self.Alive.IsRunning() {
		dev, err := self.Open()
		if err != nil {
			if !errorShown {
				self.Log.Errorf("unable to open CO2 device: %v", err)
				errorShown = true
			}
			self.sleep(delay)
			continue
		}
		errorShown = false
		if err := self.Session.Run(dev); err != nil {
			self.Log.Errorf("device session: %v", err)
		}
		if err := dev.Close(); err != nil {
			self.Log.Errorf("device close: %v", err)
		}
		// no delay after a successful open, reconnect immediately
	}
}

func (self *Supervisor) sleep(d time.Duration) {
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	select {
	case <-tmr.C:
	case <-self.Alive.StopChan():
	}
}
