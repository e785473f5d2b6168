package monitor

import (
	"github.com/juju/errors"
	alive "github.com/temoto/alive/v2"

	"github.com/airlab/co2mond/co2mon"
	"github.com/airlab/co2mond/log2"
)

// Session drives one open device: handshake once, then read, decode
// and route frames inline until the transport errors out. The device
// handle is borrowed, the caller closes it.
type Session struct {
	Log    *log2.Log
	Alive  *alive.Alive
	Router *Router
	Table  co2mon.Table
}

// Run returns on handshake failure, transport error or Alive stop.
// Frame-level rejections are logged and do not end the session.
func (self *Session) Run(dev co2mon.Device) error {
	if err := dev.SendInitTable(self.Table); err != nil {
		return errors.Annotate(err, "send init table")
	}
	for self.Alive == nil || self.Alive.IsRunning() {
		frame, err := dev.ReadFrame()
		if err != nil {
			return errors.Annotate(err, "read frame")
		}
		reading, err := co2mon.Decode(frame)
		if err != nil {
			self.Log.Errorf("frame rejected: %v", err)
			continue
		}
		self.Router.Route(reading)
	}
	return nil
}
