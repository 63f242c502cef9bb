// Package protocol implements the binary stream protocol that carries
// mutation transactions from a mounting coordinator to remote hosts.
//
// # Wire Format
//
// All messages are framed with a 4-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// Payloads longer than MaxPayloadSize are split across frames of the same
// type; every chunk but the last carries FlagContinued. Assembler joins
// them back together.
//
// # Frame Types
//
//   - FrameHello (0x00): Server → client stream setup
//   - FrameTransaction (0x02): Server → client mutation transaction
//   - FrameControl (0x03): Ping, pong, resync, close
//   - FrameAck (0x04): Client → server applied transaction number
//   - FrameError (0x05): Error message
//
// # Encoding
//
//   - Varint: compact encoding for counts, handles and numbers
//   - ZigZag: signed integers (tags, indices, revisions) as unsigned varints
//   - Length-prefixed: strings and byte arrays prefixed with varint length
//   - Big-endian: fixed-width integers and IEEE 754 floats
//
// # Transactions
//
// A transaction is a surface id, a transaction number and a mutation
// list:
//
//	[Surface: string][Number: varint][Count: varint][Mutation...]
//
// Each mutation is its type byte followed by its fields:
//
//	Create  [New view]
//	Delete  [Old view]
//	Insert  [Parent tag][New view][Index]
//	Remove  [Parent tag][Old view][Index]
//	Update  [Parent tag][Old view][New view][Index]
//
// A view is its tag, component name, component handle, frame (four
// floats), then optional props, event emitter, state and local data,
// each preceded by a presence byte. Dynamic values use a tagged encoding
// (null, bool, int, float, string, array, object).
//
// # Stream
//
//	Server                           Client
//	  │──── Hello (root view) ────────>│
//	  │──── Transaction (mount) ──────>│
//	  │──── Transaction ... ──────────>│
//	  │<──────────────── Ack (number) ─│
//	  │<─────────────── ResyncRequest ─│
//	  │──── Hello (root view) ────────>│
//	  │──── Transaction (mount) ──────>│
//
// A mount transaction creates and inserts every view below the root. On
// resync the host discards its views before applying it.
//
// # Limits
//
// Decoders reject strings over DefaultMaxAllocation, collections over
// MaxCollectionCount and values nested deeper than MaxValueDepth.
package protocol
