package sink

import (
	"time"

	client "github.com/influxdata/influxdb1-client/v2"
	"github.com/juju/errors"

	"github.com/airlab/co2mond/log2"
)

// InfluxSink posts one point per delivered reading. Delivery is
// best-effort: a failed post is reported to the caller and dropped,
// there is no local spool.
type InfluxSink struct {
	log *log2.Log
	c   client.Client
	db  string
}

func NewInfluxSink(addr, database, username, password string, log *log2.Log) (*InfluxSink, error) {
	c, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:     addr,
		Username: username,
		Password: password,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return nil, errors.Annotatef(err, "influx client addr=%s", addr)
	}
	return &InfluxSink{log: log, c: c, db: database}, nil
}

func (self *InfluxSink) PublishFloat(measurement string, value float64, ts time.Time) error {
	return self.publish(measurement, map[string]interface{}{"value": value}, ts)
}

func (self *InfluxSink) PublishInt(measurement string, value int64, ts time.Time) error {
	return self.publish(measurement, map[string]interface{}{"value": value}, ts)
}

func (self *InfluxSink) publish(measurement string, fields map[string]interface{}, ts time.Time) error {
	bp, err := client.NewBatchPoints(client.BatchPointsConfig{
		Database:  self.db,
		Precision: "ns",
	})
	if err != nil {
		return errors.Annotate(err, "influx batch")
	}
	pt, err := client.NewPoint(measurement, nil, fields, ts)
	if err != nil {
		return errors.Annotatef(err, "influx point measurement=%s", measurement)
	}
	bp.AddPoint(pt)
	if err := self.c.Write(bp); err != nil {
		return errors.Annotatef(err, "influx write measurement=%s", measurement)
	}
	return nil
}

func (self *InfluxSink) Close() error { return self.c.Close() }
