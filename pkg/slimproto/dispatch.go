// ABOUTME: Inbound command dispatch
// ABOUTME: Maps controller opcodes to handlers that drive shared state and collaborators
package slimproto

import "encoding/hex"

// Opcode identifies an inbound message type
type Opcode int

const (
	OpUnknown Opcode = iota
	OpStrm
	OpCont
	OpAudg
	OpAude
)

// ParseOpcode matches the exact 4-byte tag
func ParseOpcode(tag [4]byte) Opcode {
	switch string(tag[:]) {
	case "strm":
		return OpStrm
	case "cont":
		return OpCont
	case "audg":
		return OpAudg
	case "aude":
		return OpAude
	default:
		return OpUnknown
	}
}

// dispatch handles one inbound message. Only send failures are returned.
func (s *Session) dispatch(msg Message) error {
	switch ParseOpcode(msg.Opcode) {
	case OpStrm:
		return s.processStrm(msg.Payload)
	case OpCont:
		s.processCont()
		return nil
	case OpAudg:
		s.processAudg(msg.Payload)
		return nil
	case OpAude:
		// enable/disable audio outputs; ignored
		s.log.Debug().Msg("aude ignored")
		return nil
	default:
		s.log.Info().Str("opcode", printableTag(msg.Opcode)).Msg("unhandled")
		if e := s.log.Debug(); e.Enabled() {
			e.Str("dump", hex.Dump(msg.Payload)).Msg("unhandled payload")
		}
		return nil
	}
}

func (s *Session) processStrm(payload []byte) error {
	strm, err := DecodeStrm(payload)
	if err != nil {
		s.log.Warn().Err(err).Int("len", len(payload)).Msg("strm discarded")
		return nil
	}

	s.log.Info().Str("command", string(strm.Command)).Msg("strm")

	switch strm.Command {
	case 't':
		return s.sendStat("STMt", strm.ReplayGain)

	case 'q', 'f':
		s.streamer.Disconnect()
		FlushStream(s.streams)
		FlushOutput(s.outputs)
		return nil

	case 'p':
		s.outputs.Update(func(o *OutputShared) {
			o.State = OutputStopped
		})
		return nil

	case 'a':
		// skip ahead is accepted but not implemented
		s.log.Info().Msg("strm a not implemented")
		return nil

	case 'u':
		s.outputs.Update(func(o *OutputShared) {
			o.State = OutputRunning
			o.Decode = DecodeRunning
		})
		return s.sendStat("STMr", [4]byte{})

	case 's':
		return s.startStream(strm)

	default:
		s.log.Info().Str("command", string(strm.Command)).Msg("unhandled strm command")
		return nil
	}
}

func (s *Session) startStream(strm Strm) error {
	s.log.Info().Str("autostart", string(strm.Autostart)).Msg("strm s")

	ip := strm.ServerIP
	if ip.IsUnspecified() && s.controller != nil {
		ip = s.controller
	}

	s.outputs.Update(func(o *OutputShared) {
		o.State = OutputRunning
	})
	if err := s.sendStat("STMf", [4]byte{}); err != nil {
		return err
	}

	s.codecs.Open(strm.Format, strm.PCMSampleSize, strm.PCMSampleRate, strm.PCMChannels, strm.PCMEndianness)
	s.streamer.Connect(ip, strm.ServerPort, strm.Header)

	s.status.Jiffies = s.clock()
	if err := s.sendStat("STMc", [4]byte{}); err != nil {
		return err
	}

	s.autostart = int(strm.Autostart) - '0'
	return nil
}

// processCont releases autostart modes that wait for the post-metadata continuation
func (s *Session) processCont() {
	if s.autostart > 1 {
		s.autostart -= 2
	}
	s.log.Info().Int("autostart", s.autostart).Msg("cont")
}

func (s *Session) processAudg(payload []byte) {
	audg, err := DecodeAudg(payload)
	if err != nil {
		s.log.Warn().Err(err).Int("len", len(payload)).Msg("audg discarded")
		return
	}

	s.log.Info().Uint32("gainL", audg.GainLeft).Uint32("gainR", audg.GainRight).Msg("audg")

	s.outputs.Update(func(o *OutputShared) {
		o.GainLeft = audg.GainLeft
		o.GainRight = audg.GainRight
	})
}

// printableTag renders an opcode for logs without trusting its contents
func printableTag(tag [4]byte) string {
	out := make([]byte, len(tag))
	for i, b := range tag {
		if b < 0x20 || b > 0x7e {
			b = '.'
		}
		out[i] = b
	}
	return string(out)
}
