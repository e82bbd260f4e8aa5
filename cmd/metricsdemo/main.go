// Command metricsdemo serves the stack's Prometheus collector over
// /metrics, adapted from cmd/exporter_example1/main.go in the teacher
// repo (promhttp.Handler plus prometheus.MustRegister around a
// hand-built Collector).
package main

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/sbcnet/coreip/pkg/clock"
	"github.com/sbcnet/coreip/pkg/ifc"
	"github.com/sbcnet/coreip/pkg/link"
	"github.com/sbcnet/coreip/pkg/metrics"
	"github.com/sbcnet/coreip/pkg/pbuf"
	"github.com/sbcnet/coreip/pkg/stack"
	"github.com/sbcnet/coreip/pkg/tcp"
	"github.com/sbcnet/coreip/pkg/wire"
)

// nullDriver never has a frame to offer and accepts every transmit; it
// stands in for a real ENC28J60 driver so this demo can serve metrics for
// an otherwise idle stack.
type nullDriver struct{}

func (nullDriver) Init() error                            { return nil }
func (nullDriver) Input() (*pbuf.Pbuf, bool)               { return nil, false }
func (nullDriver) Output(*pbuf.Pbuf) (link.Result, error)  { return link.OK, nil }
func (nullDriver) State() bool                             { return true }

func main() {
	log := logrus.StandardLogger()

	pool := pbuf.NewDefault()
	s := stack.New("metricsdemo", pool, clock.NewSystem(), log)

	addr, _ := wire.ParseIPv4("192.168.1.19")
	mask, _ := wire.ParseIPv4("255.255.255.0")
	mac := wire.MACAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}

	iface := ifc.New("eth0", nullDriver{}, pool, mac, pbuf.DefaultMTU)
	iface.Configure(addr, mask, wire.IPv4Addr{})
	s.AddInterface(iface)

	tcpTable := tcp.NewTable(tcp.DefaultConfig(), log)

	collector := metrics.NewCollector("coreip", s, tcpTable)
	prometheus.MustRegister(collector)

	http.Handle("/metrics", promhttp.Handler())
	log.Info("metricsdemo: serving /metrics on :18080")
	if err := http.ListenAndServe(":18080", nil); err != nil {
		log.WithError(err).Error("metricsdemo: server exited")
		os.Exit(1)
	}
}
