package monitor

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	alive "github.com/temoto/alive/v2"

	"github.com/airlab/co2mond/co2mon"
	"github.com/airlab/co2mond/log2"
)

type fakeDevice struct {
	initErr error
	frames  []co2mon.Frame
	readErr error
	reads   int
	inits   int
	closed  bool
	onRead  func(n int)
}

func (self *fakeDevice) SendInitTable(co2mon.Table) error {
	self.inits++
	return self.initErr
}

func (self *fakeDevice) ReadFrame() (co2mon.Frame, error) {
	if self.onRead != nil {
		self.onRead(self.reads)
	}
	if self.reads < len(self.frames) {
		f := self.frames[self.reads]
		self.reads++
		return f, nil
	}
	self.reads++
	if self.readErr != nil {
		return co2mon.Frame{}, self.readErr
	}
	return co2mon.Frame{}, errors.Errorf("device unplugged")
}

func (self *fakeDevice) Close() error {
	self.closed = true
	return nil
}

func TestSessionHandshakeFailure(t *testing.T) {
	t.Parallel()

	dev := &fakeDevice{initErr: errors.Errorf("ioctl refused")}
	s := &Session{
		Log:    log2.NewTest(t, log2.LDebug),
		Router: NewRouter(log2.NewTest(t, log2.LDebug), nil, nil, nil, false),
	}
	err := s.Run(dev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send init table")
	// connect-class failure, no reads attempted
	assert.Equal(t, 0, dev.reads)
	assert.False(t, dev.closed, "session must not close the borrowed handle")
}

func TestSessionRejectionContinues(t *testing.T) {
	t.Parallel()

	dev := &fakeDevice{frames: []co2mon.Frame{
		{0x50, 0x01, 0x9f, 0xf0, 0x00}, // bad terminator
		{0x50, 0x01, 0x9f, 0x00, 0x0d}, // bad checksum
		{0x50, 0x01, 0x9f, 0xf0, 0x0d}, // good, 415 ppm
	}}
	files := &fakeFiles{}
	r := NewRouter(log2.NewTest(t, log2.LDebug), files, nil, nil, false)
	r.now = fixedClock(5)
	s := &Session{Log: log2.NewTest(t, log2.LDebug), Router: r}

	err := s.Run(dev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read frame")
	assert.Equal(t, 1, dev.inits)
	assert.Equal(t, []string{"415"}, files.writes[labelCntR])
}

func TestSessionAliveStop(t *testing.T) {
	t.Parallel()

	a := alive.NewAlive()
	a.Stop()
	dev := &fakeDevice{}
	s := &Session{
		Log:    log2.NewTest(t, log2.LDebug),
		Alive:  a,
		Router: NewRouter(log2.NewTest(t, log2.LDebug), nil, nil, nil, false),
	}
	require.NoError(t, s.Run(dev))
	assert.Equal(t, 0, dev.reads)
}
