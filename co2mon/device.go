package co2mon

// Table is the 8-byte key sent to the device during the handshake.
// The device obfuscates subsequent reports with it. An all-zero
// table is a valid key and is what this program always sends.
type Table [8]byte

// Device is the narrow transport surface the monitor core consumes.
// Implementations: hidraw (Linux), fakes in tests.
//
// The opener of a Device owns the handle: sessions borrow it and
// never Close it themselves.
type Device interface {
	// SendInitTable performs the one-time protocol handshake.
	SendInitTable(Table) error
	// ReadFrame blocks until the device pushes the next report or
	// errors out. There is no timeout: the device emits a frame
	// roughly every other second on its own, and a dead device
	// returns a read error.
	ReadFrame() (Frame, error)
	Close() error
}
