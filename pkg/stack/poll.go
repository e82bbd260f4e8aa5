package stack

import (
	"github.com/sbcnet/coreip/pkg/ifc"
	"github.com/sbcnet/coreip/pkg/wire"
)

// PollInterface drains every frame currently available from iface's
// driver, dispatching each by Ethertype to a registered EthertypeHandler,
// or dropping it if none is registered (spec.md §4.9, interface_input).
func (s *Stack) PollInterface(iface *ifc.Interface) {
	for {
		frame, ok := iface.Poll()
		if !ok {
			return
		}

		raw := frame.Bytes()
		if len(raw) < wire.EthernetHeaderLen {
			iface.DropInput()
			s.Pool.Free(frame)
			continue
		}

		et := wire.Ethernet(raw).Type()
		fn, ok := s.EthertypeHandler(et)
		if !ok {
			iface.DropInput()
			s.Pool.Free(frame)
			continue
		}

		if err := fn(s, iface, raw); err != nil && s.Log != nil {
			s.Log.WithError(err).WithField("ethertype", et).Debug("stack: input handler error")
		}
		s.Pool.Free(frame)
	}
}

// PollAll polls every registered interface once (spec.md §5's single
// main-loop scheduling model).
func (s *Stack) PollAll() {
	for _, iface := range s.Interfaces {
		s.PollInterface(iface)
	}
}
