// Package metrics exposes the stack's internal tables as Prometheus
// gauges and counters: pbuf-pool occupancy, per-interface ARP-table
// occupancy and traffic counters, and per-state TCP PCB counts and
// retransmits. It is the direct descendant of the teacher's
// pkg/exporter.TCPInfoCollector — instead of walking a map of net.Conn
// and calling getsockopt(TCP_INFO) per connection, Collect walks this
// stack's own in-process tables.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sbcnet/coreip/pkg/stack"
	"github.com/sbcnet/coreip/pkg/tcp"
)

// Collector is a prometheus.Collector over a single stack's state. The
// stack, its interfaces, and the TCP PCB table are all read without
// locking: Collect is only ever called from the same single thread of
// control that owns the stack (spec.md §5), so no synchronization is
// needed here either.
type Collector struct {
	stack *stack.Stack
	tcp   *tcp.Table

	pbufInUse      *prometheus.Desc
	pbufCapacity   *prometheus.Desc
	arpOccupancy   *prometheus.Desc
	arpCapacity    *prometheus.Desc
	tcpPCBState    *prometheus.Desc
	tcpPCBCapacity *prometheus.Desc
	tcpRetransmits *prometheus.Desc
	ifaceRxPackets *prometheus.Desc
	ifaceTxPackets *prometheus.Desc
	ifaceRxDropped *prometheus.Desc
	ifaceRxErrors  *prometheus.Desc
	ifaceTxErrors  *prometheus.Desc
}

// NewCollector builds a Collector for s's pbuf pool and interfaces, and
// (if non-nil) t's PCB table. prefix namespaces every metric name, the
// way exporter.NewTCPInfoCollector takes a prefix argument.
func NewCollector(prefix string, s *stack.Stack, t *tcp.Table) *Collector {
	ns := prefix
	return &Collector{
		stack: s,
		tcp:   t,
		pbufInUse: prometheus.NewDesc(
			ns+"_pbuf_in_use", "Number of packet buffers currently allocated.", nil, nil),
		pbufCapacity: prometheus.NewDesc(
			ns+"_pbuf_capacity", "Total number of packet buffers in the pool.", nil, nil),
		arpOccupancy: prometheus.NewDesc(
			ns+"_arp_table_entries", "Occupied ARP table slots.", []string{"interface"}, nil),
		arpCapacity: prometheus.NewDesc(
			ns+"_arp_table_capacity", "Total ARP table slots.", []string{"interface"}, nil),
		tcpPCBState: prometheus.NewDesc(
			ns+"_tcp_pcb_state", "Number of TCP PCBs in a given state.", []string{"state"}, nil),
		tcpPCBCapacity: prometheus.NewDesc(
			ns+"_tcp_pcb_capacity", "Total number of TCP PCB slots.", nil, nil),
		tcpRetransmits: prometheus.NewDesc(
			ns+"_tcp_retransmits", "Retransmits counted across currently-occupied TCP PCB slots.", nil, nil),
		ifaceRxPackets: prometheus.NewDesc(
			ns+"_iface_rx_packets_total", "Frames received on an interface.", []string{"interface"}, nil),
		ifaceTxPackets: prometheus.NewDesc(
			ns+"_iface_tx_packets_total", "Frames transmitted on an interface.", []string{"interface"}, nil),
		ifaceRxDropped: prometheus.NewDesc(
			ns+"_iface_rx_dropped_total", "Frames received and dropped by this core.", []string{"interface"}, nil),
		ifaceRxErrors: prometheus.NewDesc(
			ns+"_iface_rx_errors_total", "Frame receive errors.", []string{"interface"}, nil),
		ifaceTxErrors: prometheus.NewDesc(
			ns+"_iface_tx_errors_total", "Frame transmit errors.", []string{"interface"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.pbufInUse
	ch <- c.pbufCapacity
	ch <- c.arpOccupancy
	ch <- c.arpCapacity
	ch <- c.tcpPCBState
	ch <- c.tcpPCBCapacity
	ch <- c.tcpRetransmits
	ch <- c.ifaceRxPackets
	ch <- c.ifaceTxPackets
	ch <- c.ifaceRxDropped
	ch <- c.ifaceRxErrors
	ch <- c.ifaceTxErrors
}

// Collect implements prometheus.Collector, walking the stack's tables the
// same way exporter.Collect walks its conns map under a mutex — here
// there is no mutex because there is only ever one caller (spec.md §5).
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.pbufInUse, prometheus.GaugeValue, float64(c.stack.Pool.InUse()))
	ch <- prometheus.MustNewConstMetric(c.pbufCapacity, prometheus.GaugeValue, float64(c.stack.Pool.Capacity()))

	for _, iface := range c.stack.Interfaces {
		name := iface.Name
		tbl := iface.Table()
		ch <- prometheus.MustNewConstMetric(c.arpOccupancy, prometheus.GaugeValue, float64(tbl.Len()), name)
		ch <- prometheus.MustNewConstMetric(c.arpCapacity, prometheus.GaugeValue, float64(tbl.Capacity()), name)

		cnt := iface.CountersSnapshot()
		ch <- prometheus.MustNewConstMetric(c.ifaceRxPackets, prometheus.CounterValue, float64(cnt.RxPackets), name)
		ch <- prometheus.MustNewConstMetric(c.ifaceTxPackets, prometheus.CounterValue, float64(cnt.TxPackets), name)
		ch <- prometheus.MustNewConstMetric(c.ifaceRxDropped, prometheus.CounterValue, float64(cnt.RxDropped), name)
		ch <- prometheus.MustNewConstMetric(c.ifaceRxErrors, prometheus.CounterValue, float64(cnt.RxErrors), name)
		ch <- prometheus.MustNewConstMetric(c.ifaceTxErrors, prometheus.CounterValue, float64(cnt.TxErrors), name)
	}

	if c.tcp == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.tcpPCBCapacity, prometheus.GaugeValue, float64(c.tcp.Capacity()))
	ch <- prometheus.MustNewConstMetric(c.tcpRetransmits, prometheus.CounterValue, float64(c.tcp.TotalRetransmits()))
	for state, n := range c.tcp.StateCounts() {
		ch <- prometheus.MustNewConstMetric(c.tcpPCBState, prometheus.GaugeValue, float64(n), state.String())
	}
}
