// Package state holds the process configuration. Everything is
// resolved before the supervisor loop starts; the core packages
// receive plain values and never read configuration themselves.
package state

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"

	"github.com/airlab/co2mond/helpers"
	"github.com/airlab/co2mond/log2"
)

const (
	DefaultInfluxHost = "influxdb"
	DefaultInfluxPort = 8086
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Device struct {
		Path string `hcl:"path"`
	} `hcl:"device"`

	Datadir      string `hcl:"datadir"`
	Daemon       bool   `hcl:"daemon"`
	PrintUnknown bool   `hcl:"print_unknown"`
	PidFile      string `hcl:"pidfile"`
	LogFile      string `hcl:"logfile"`

	Influx InfluxConfig `hcl:"influx"`
}

type InfluxConfig struct {
	Host     string `hcl:"host"`
	Port     int    `hcl:"port"`
	Database string `hcl:"database"`
	Username string `hcl:"username"`
	Password string `hcl:"password"`
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

// Enabled: a non-empty database turns on InfluxDB delivery,
// same switch as the original daemon.
func (c *InfluxConfig) Enabled() bool { return c.Database != "" }

func (c *InfluxConfig) Addr() string {
	host := c.Host
	if host == "" {
		host = DefaultInfluxHost
	}
	port := c.Port
	if port == 0 {
		port = DefaultInfluxPort
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		log.Fatalf("config duplicate source=%s", source.Name)
	} else {
		log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	}
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
			return
		}
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s content='%s'", source.Name, string(bs))
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		log.Fatal("code error [Must]ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
