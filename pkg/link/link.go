// Package link defines the boundary this core calls across to reach the
// physical Ethernet driver (spec.md §6, "Link-layer driver contract").
// Everything on the driver side of this interface — the SPI/8255
// transport, the ENC28J60 register protocol — is explicitly out of scope
// (spec.md §1); this package only states the contract.
package link

import "github.com/sbcnet/coreip/pkg/pbuf"

// Result is the outcome of a transmit attempt (spec.md §6).
type Result int

const (
	// OK means the frame was transmitted (or handed to the driver queue).
	OK Result = iota
	// Queued means the driver accepted the frame but has not transmitted
	// it yet.
	Queued
	TXCollision
	TXLateCollision
	DriverError
)

func (r Result) String() string {
	switch r {
	case OK:
		return "OK"
	case Queued:
		return "QUEUED"
	case TXCollision:
		return "TX_COLLISION"
	case TXLateCollision:
		return "TX_LATE_COLLISION"
	case DriverError:
		return "DRIVER_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Driver is the contract an external collaborator (the ENC28J60-class SPI
// driver) must provide, consumed by pkg/ifc (spec.md §6).
type Driver interface {
	// Init brings the controller up.
	Init() error
	// Input is non-blocking: it yields one fully received Ethernet frame,
	// or ok=false if none is currently available.
	Input() (frame *pbuf.Pbuf, ok bool)
	// Output transmits synchronously.
	Output(frame *pbuf.Pbuf) (Result, error)
	// State reports the current PHY link state.
	State() bool
}
