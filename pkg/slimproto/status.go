// ABOUTME: Periodic status reporting
// ABOUTME: Samples shared state under lock, then emits the resulting events without it
package slimproto

const (
	// TickInterval is the minimum spacing between status evaluations
	TickInterval = 100 // ms
	// HeartbeatInterval is the minimum spacing between STMt heartbeats while decoding
	HeartbeatInterval = 1000 // ms
)

// tickEvents records which status events fired during one tick
type tickEvents struct {
	dsco   bool
	reason DisconnectReason
	resp   bool
	header []byte

	trackStarted bool // STMs
	trackDone    bool // STMd
	heartbeat    bool // STMt
	stall        bool // STMl
	// STMu/STMo: output underrun and overrun reporting is not implemented,
	// these are never set but keep their place in the emission order.
	underrun bool
	overrun  bool
}

// tickDue reports whether a tick should run at now
func (s *Session) tickDue(now uint32) bool {
	return now-s.status.Jiffies >= TickInterval
}

// maybeTick runs one status tick if it is due
func (s *Session) maybeTick() error {
	now := s.clock()
	if !s.tickDue(now) {
		return nil
	}
	return s.emit(s.sample(now))
}

// sample refreshes the snapshot and consumes one-shot events. It takes each
// lock in turn and never holds both; it performs no I/O.
func (s *Session) sample(now uint32) tickEvents {
	var ev tickEvents
	s.status.Jiffies = now

	s.streams.Update(func(st *StreamShared) {
		s.status.StreamFull = uint32(st.Buffer.Used())
		s.status.StreamSize = uint32(st.Buffer.Size())
		s.status.BytesReceived = st.BytesReceived
		s.status.StreamState = st.State

		if st.State == StreamDisconnected {
			ev.dsco = true
			ev.reason = st.Disconnect
			st.State = StreamStopped
		}
		if st.State == StreamingHTTP && !st.HeaderSent {
			ev.resp = true
			ev.header = append([]byte(nil), st.Header...)
			st.HeaderSent = true
		}
	})

	autostart := s.autostart
	s.outputs.Update(func(o *OutputShared) {
		s.status.OutputFull = uint32(o.Buffer.Used())
		s.status.OutputSize = uint32(o.Buffer.Size())
		s.status.FramesPlayed = o.FramesPlayed
		s.status.CurrentSampleRate = o.CurrentSampleRate

		if o.TrackStarted {
			ev.trackStarted = true
			o.TrackStarted = false
		}
		if o.Decode == DecodeComplete {
			ev.trackDone = true
			o.Decode = DecodeStopped
		}
		if s.status.StreamState == StreamingHTTP && o.Decode == DecodeStopped {
			switch autostart {
			case 0:
				ev.stall = true
			case 1:
				o.Decode = DecodeRunning
			}
			// 2 and 3 wait for cont
		}
		if o.Decode == DecodeRunning && now-s.status.LastHeartbeat >= HeartbeatInterval {
			ev.heartbeat = true
			s.status.LastHeartbeat = now
		}
	})

	return ev
}

// emit sends the events of one tick in protocol order. Called with no locks held.
func (s *Session) emit(ev tickEvents) error {
	var none [4]byte

	if ev.dsco {
		if err := s.sendDsco(ev.reason); err != nil {
			return err
		}
	}

	stats := []struct {
		fired bool
		event string
	}{
		{ev.trackStarted, "STMs"},
		{ev.trackDone, "STMd"},
		{ev.heartbeat, "STMt"},
		{ev.stall, "STMl"},
		{ev.underrun, "STMu"},
		{ev.overrun, "STMo"},
	}
	for _, st := range stats {
		if !st.fired {
			continue
		}
		if err := s.sendStat(st.event, none); err != nil {
			return err
		}
	}

	if ev.resp {
		return s.sendResp(ev.header)
	}
	return nil
}
