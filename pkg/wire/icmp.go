package wire

import "encoding/binary"

// ICMP types/codes this core handles (§4.6, §6).
const (
	ICMPEchoReply   uint8 = 0
	ICMPEchoRequest uint8 = 8
	ICMPCodeZero    uint8 = 0
)

// ICMPHeaderLen is the fixed echo header size: type(1) code(1) checksum(2)
// id(2) seq(2) (§6).
const ICMPHeaderLen = 8

// ICMPEcho is a typed view over an ICMP echo request/reply header, followed
// by an arbitrary-length payload.
type ICMPEcho []byte

func (e ICMPEcho) Type() uint8       { return e[0] }
func (e ICMPEcho) Code() uint8       { return e[1] }
func (e ICMPEcho) Checksum() uint16  { return binary.BigEndian.Uint16(e[2:4]) }
func (e ICMPEcho) ID() uint16        { return binary.BigEndian.Uint16(e[4:6]) }
func (e ICMPEcho) Seq() uint16       { return binary.BigEndian.Uint16(e[6:8]) }
func (e ICMPEcho) Payload() []byte   { return e[ICMPHeaderLen:] }

func (e ICMPEcho) SetType(v uint8)      { e[0] = v }
func (e ICMPEcho) SetCode(v uint8)      { e[1] = v }
func (e ICMPEcho) SetChecksum(v uint16) { binary.BigEndian.PutUint16(e[2:4], v) }
func (e ICMPEcho) SetID(v uint16)       { binary.BigEndian.PutUint16(e[4:6], v) }
func (e ICMPEcho) SetSeq(v uint16)      { binary.BigEndian.PutUint16(e[6:8], v) }

// ComputeChecksum recomputes and stores the ICMP checksum over the whole
// message (header + payload); ICMP has no pseudo-header (§6).
func (e ICMPEcho) ComputeChecksum() {
	e.SetChecksum(0)
	e.SetChecksum(HeaderChecksum(e))
}

// VerifyChecksum checks the embedded checksum against the whole message.
func (e ICMPEcho) VerifyChecksum() bool {
	return VerifyChecksum(e)
}
