// Package bitpack reads and writes MSB-first packed bit streams.
//
// Packed pose data stores each component as an unsigned integer of 1 to 32
// bits, most significant bit first, with no padding between components. A
// stream is addressed by absolute bit offset so that a decoder can start
// reading any stored sample directly.
//
// Reader never reads past the end of its byte slice: every read reports
// whether the requested bits were fully available.
package bitpack
