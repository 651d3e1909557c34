// Package flow computes the canonical bidirectional flow identifier used
// to correlate packets belonging to the same transport-layer
// conversation, independent of which endpoint happens to appear as
// source or destination in a given packet.
//
// The shape follows the teacher's connectionID idea (combine link/net/
// transport identifiers into one comparable key), generalized here to a
// plain formatted string keyed on the IP/port/proto tuple alone, per
// the spec's flow-key contract.
package flow

import (
	"strconv"
	"strings"
)

// NoPort marks an absent port for non-TCP/UDP flows.
const NoPort = -1

// Key returns the canonical flow key for a bidirectional transport flow,
// or "" if srcIP/dstIP are both empty (no IP layer).
//
// The endpoint pair is ordered so the lexicographically smaller IP
// appears first, swapping ports correspondingly, so that
// Key(A,B,pA,pB,proto) == Key(B,A,pB,pA,proto) for any A<B. When both
// IPs are equal the smaller port comes first, so the key stays the same
// in both directions.
func Key(srcIP, dstIP string, srcPort, dstPort int, proto string) string {
	if srcIP == "" && dstIP == "" {
		return ""
	}

	ipA, ipB := srcIP, dstIP
	portA, portB := srcPort, dstPort

	if dstIP < srcIP || (dstIP == srcIP && dstPort < srcPort) {
		ipA, ipB = dstIP, srcIP
		portA, portB = dstPort, srcPort
	}

	var b strings.Builder
	b.WriteString(ipA)
	b.WriteByte('-')
	b.WriteString(ipB)
	b.WriteByte(':')
	b.WriteString(portString(portA))
	b.WriteByte('-')
	b.WriteString(portString(portB))
	b.WriteByte(':')
	b.WriteString(proto)

	return b.String()
}

func portString(p int) string {
	if p < 0 {
		return "none"
	}
	return strconv.Itoa(p)
}
