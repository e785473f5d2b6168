package state

import (
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airlab/co2mond/log2"
)

func TestReadConfig(t *testing.T) {
	t.Parallel()

	type Case struct {
		name      string
		input     string
		check     func(testing.TB, *Config)
		expectErr string
	}
	cases := []Case{
		{"empty", "", func(t testing.TB, c *Config) {
			assert.False(t, c.Influx.Enabled())
			assert.Equal(t, "http://influxdb:8086", c.Influx.Addr())
			assert.Equal(t, "", c.Datadir)
		}, ""},

		{"device",
			`device { path = "/dev/hidraw3" }`,
			func(t testing.TB, c *Config) {
				assert.Equal(t, "/dev/hidraw3", c.Device.Path)
			}, ""},

		{"file-sink",
			`datadir = "/var/lib/co2mond"
print_unknown = true
pidfile = "/run/co2mond.pid"`,
			func(t testing.TB, c *Config) {
				assert.Equal(t, "/var/lib/co2mond", c.Datadir)
				assert.True(t, c.PrintUnknown)
				assert.Equal(t, "/run/co2mond.pid", c.PidFile)
				assert.False(t, c.Daemon)
			}, ""},

		{"influx",
			`influx {
	host = "tsdb.lan"
	port = 18086
	database = "co2"
	username = "writer"
	password = "hunter2"
}`,
			func(t testing.TB, c *Config) {
				require.True(t, c.Influx.Enabled())
				assert.Equal(t, "http://tsdb.lan:18086", c.Influx.Addr())
				assert.Equal(t, "writer", c.Influx.Username)
			}, ""},

		{"influx-defaults",
			`influx { database = "co2" }`,
			func(t testing.TB, c *Config) {
				require.True(t, c.Influx.Enabled())
				assert.Equal(t, "http://influxdb:8086", c.Influx.Addr())
			}, ""},

		{"include-optional", `
include "datadir-tmp" {}
include "non-exist" { optional = true }`,
			func(t testing.TB, c *Config) {
				assert.Equal(t, "/tmp/co2", c.Datadir)
			}, ""},

		{"include-overwrites", `
datadir = "/one"
include "datadir-tmp" {}`,
			func(t testing.TB, c *Config) {
				assert.Equal(t, "/tmp/co2", c.Datadir)
			}, ""},

		{"include-missing", `include "non-exist" {}`, nil, "config required name=non-exist"},
		{"error-syntax", `hello`, nil, "key 'hello' expected start of object"},
		{"error-include-loop", `include "include-loop" {}`, nil, "config include loop: from=include-loop include=include-loop"},
	}
	mkCheck := func(c Case) func(*testing.T) {
		return func(t *testing.T) {
			log := log2.NewTest(t, log2.LDebug)

			fs := NewMockFullReader(map[string]string{
				"test-inline":  c.input,
				"empty":        "",
				"datadir-tmp":  `datadir = "/tmp/co2"`,
				"include-loop": `include "include-loop" {}`,
			})
			cfg, err := ReadConfig(log, fs, "test-inline")
			if c.expectErr == "" {
				if err != nil {
					t.Fatalf("error expected=nil actual='%v'", errors.ErrorStack(err))
				}
				if c.check != nil {
					c.check(t, cfg)
				}
			} else {
				require.Error(t, err)
				if !strings.Contains(err.Error(), c.expectErr) {
					t.Fatalf("error expected='%s' actual='%v'", c.expectErr, err)
				}
			}
		}
	}
	for _, c := range cases {
		t.Run(c.name, mkCheck(c))
	}
}
