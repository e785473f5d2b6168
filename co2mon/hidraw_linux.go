//go:build linux
// +build linux

package co2mon

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/juju/errors"
	"golang.org/x/sys/unix"

	"github.com/airlab/co2mond/log2"
)

const (
	VendorID  = 0x04d9
	ProductID = 0xa052
)

// hidID is the HID_ID uevent value for bus=USB(0003) vendor:product.
const hidID = "HID_ID=0003:000004D9:0000A052"

const sysClassHidraw = "/sys/class/hidraw"

// HIDIOCSFEATURE(9): _IOC(_IOC_READ|_IOC_WRITE, 'H', 0x06, 9)
const hidiocsfeature9 = 3<<30 | 9<<16 | 'H'<<8 | 0x06

type hidrawDevice struct {
	log   *log2.Log
	f     *os.File
	table Table
}

// Open opens the hidraw device at path.
func Open(path string, log *log2.Log) (Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Annotatef(err, "hidraw open path=%s", path)
	}
	log.Debugf("hidraw open path=%s fd=%d", path, f.Fd())
	return &hidrawDevice{log: log, f: f}, nil
}

// OpenAny discovers the first attached sensor and opens it.
func OpenAny(log *log2.Log) (Device, error) {
	path, err := discover()
	if err != nil {
		return nil, err
	}
	return Open(path, log)
}

// discover walks /sys/class/hidraw looking for the sensor's HID id.
func discover() (string, error) {
	entries, err := ioutil.ReadDir(sysClassHidraw)
	if err != nil {
		return "", errors.Annotate(err, "hidraw discover")
	}
	for _, e := range entries {
		uevent := filepath.Join(sysClassHidraw, e.Name(), "device", "uevent")
		bs, err := ioutil.ReadFile(uevent)
		if err != nil {
			continue
		}
		if ueventMatches(bs) {
			return filepath.Join("/dev", e.Name()), nil
		}
	}
	return "", errors.NotFoundf("CO2 device %04x:%04x", VendorID, ProductID)
}

func ueventMatches(bs []byte) bool {
	for _, line := range bytes.Split(bs, []byte{'\n'}) {
		if string(bytes.TrimSpace(line)) == hidID {
			return true
		}
	}
	return false
}

func (self *hidrawDevice) SendInitTable(table Table) error {
	// feature report: report number 0, then the 8 key bytes
	buf := [1 + len(table)]byte{}
	copy(buf[1:], table[:])
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, self.f.Fd(), hidiocsfeature9, uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return errors.Annotate(errno, "hidraw feature report")
	}
	self.table = table
	return nil
}

func (self *hidrawDevice) ReadFrame() (Frame, error) {
	var frame Frame
	n, err := self.f.Read(frame[:])
	if err != nil {
		return frame, errors.Annotate(err, "hidraw read")
	}
	if n != FrameSize {
		return frame, errors.Errorf("hidraw short read n=%d want=%d", n, FrameSize)
	}
	// Newer firmware pushes reports in the clear, recognizable by the
	// terminator byte already in place.
	if frame[4] != frameTerminator {
		decrypt(&frame, self.table)
	}
	return frame, nil
}

func (self *hidrawDevice) Close() error {
	return self.f.Close()
}
