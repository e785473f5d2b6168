// Package sink delivers formatted readings to their destination:
// locked flat files under a data directory, or an InfluxDB endpoint.
package sink

import (
	"io"
	"os"
	"path/filepath"

	"github.com/juju/errors"
	"golang.org/x/sys/unix"

	"github.com/airlab/co2mond/log2"
)

// ValueMax bounds a formatted value including the trailing newline.
// External readers of the metric files rely on this limit.
const ValueMax = 20

// FileSink writes the latest value of a named metric to
// <dir>/<name>. Writes are atomic from a reader's perspective:
// an exclusive advisory lock is held around truncate+write, so
// monitoring scripts taking a shared lock never see a torn value.
type FileSink struct {
	log *log2.Log
	dir string
}

func NewFileSink(dir string, log *log2.Log) *FileSink {
	return &FileSink{log: log, dir: dir}
}

func (self *FileSink) Write(name, value string) error {
	f, err := os.OpenFile(filepath.Join(self.dir, name), os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return errors.Annotatef(err, "sink file name=%s", name)
	}
	defer f.Close()
	return WriteLocked(f, value)
}

// WriteLocked replaces the contents of f with value and a newline
// under an exclusive fcntl lock. Exported for the pid file, which
// uses the identical discipline on a descriptor opened at startup.
func WriteLocked(f *os.File, value string) error {
	if len(value)+1 > ValueMax {
		return errors.Errorf("value too long len=%d max=%d", len(value)+1, ValueMax)
	}
	if err := lock(f, unix.F_WRLCK); err != nil {
		return errors.Annotate(err, "lock")
	}
	if err := f.Truncate(0); err != nil {
		return errors.Annotate(err, "truncate")
	}
	if _, err := f.WriteAt([]byte(value+"\n"), 0); err != nil {
		return errors.Annotate(err, "write")
	}
	if err := lock(f, unix.F_UNLCK); err != nil {
		return errors.Annotate(err, "unlock")
	}
	return nil
}

func lock(f *os.File, typ int16) error {
	lk := unix.Flock_t{
		Type:   typ,
		Whence: io.SeekStart,
	}
	return unix.FcntlFlock(f.Fd(), unix.F_SETLKW, &lk)
}
