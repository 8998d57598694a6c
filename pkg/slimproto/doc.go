// ABOUTME: SlimProto player protocol package
// ABOUTME: Wire codec, framing, command dispatch, status reporting and connection lifecycle
// Package slimproto implements the player side of the SlimProto control protocol.
//
// A Client connects to a controller (configured or discovered), sends HELO,
// then runs a single loop that reads framed commands and, every 100ms,
// samples the shared stream and output state to report STAT events.
//
// Playback state is shared with the streaming, decode and output stages
// through two cells, StreamCell and OutputCell. Their locks are taken one at
// a time and never held while writing to the socket.
//
// Example:
//
//	client, err := slimproto.NewClient(slimproto.Config{
//	    Server:   "192.168.1.10",
//	    Streams:  slimproto.NewStreamCell(2 << 20),
//	    Outputs:  slimproto.NewOutputCell(4 << 20, 48000),
//	    Codecs:   codecs,
//	    Streamer: streamer,
//	    Formats:  []string{"mp3", "flc", "pcm"},
//	})
//	err = client.Run(ctx)
package slimproto
