// Package stream implements the packet streamer: a lazy, finite sequence
// of decoded packets read from a capture file in file order.
//
// Reading is done with google/gopacket's pcapgo reader so the engine
// never needs a libpcap cgo binding; gzip-compressed captures
// (.pcap.gz) are transparently decompressed with klauspost/pgzip, the
// same compressor the teacher's own audit-record writer uses for its
// on-disk files.
package stream

import (
	"io"
	"os"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	gzip "github.com/klauspost/pgzip"

	"github.com/Delta-Sec/Z-Shark/internal/packet"
	"github.com/Delta-Sec/Z-Shark/internal/xlog"
	"github.com/Delta-Sec/Z-Shark/internal/zerrors"
)

var log = xlog.For("stream")

// packetReader is satisfied by both pcapgo.Reader and pcapgo.NgReader.
type packetReader interface {
	ReadPacketData() (data []byte, ci gopacket.CaptureInfo, err error)
	LinkType() layers.LinkType
}

// Streamer yields decoded packets from a single capture file in file
// order. It is single-use: create a new Streamer per analysis run.
type Streamer struct {
	path   string
	file   *os.File
	gz     *gzip.Reader
	reader packetReader
}

// Open opens path for reading, auto-detecting PCAP vs PCAPNG from the
// leading magic bytes; a path ending in ".gz" is read through a gzip
// decompressor first. Returns a SourceOpenError if the file cannot be
// opened or recognized.
func Open(path string) (*Streamer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, zerrors.NewSourceOpenError(path, err)
	}

	var (
		src io.Reader = f
		gz  *gzip.Reader
	)

	if strings.HasSuffix(path, ".gz") {
		gz, err = gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, zerrors.NewSourceOpenError(path, err)
		}
		src = gz
	}

	reader, err := newPacketReader(src)
	if err != nil {
		if gz != nil {
			gz.Close()
		}
		f.Close()
		return nil, zerrors.NewSourceOpenError(path, err)
	}

	log.Infow("capture opened", "path", path)

	return &Streamer{path: path, file: f, gz: gz, reader: reader}, nil
}

// newPacketReader picks PCAPNG or legacy PCAP from the first four bytes,
// since pcapgo exposes distinct reader types per format and there is no
// single auto-detecting constructor. The peeked bytes are replayed in
// front of r so the chosen reader sees the whole stream.
func newPacketReader(r io.Reader) (packetReader, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	r = io.MultiReader(strings.NewReader(string(magic[:])), r)

	if magic == [4]byte{0x0a, 0x0d, 0x0d, 0x0a} {
		return pcapgo.NewNgReader(r, pcapgo.DefaultNgReaderOptions)
	}

	return pcapgo.NewReader(r)
}

// Packets returns a finite iterator over decoded packets in file order.
// Per-packet decode errors are logged at WARN and skipped; they never
// terminate the stream.
func (s *Streamer) Packets() func(yield func(packet.Packet) bool) {
	return func(yield func(packet.Packet) bool) {
		index := 0
		for {
			data, ci, err := s.reader.ReadPacketData()
			if err == io.EOF {
				return
			}
			if err != nil {
				log.Warnw("packet decode error, skipping", "index", index, "error", zerrors.NewPacketDecodeError(index, err))
				index++
				continue
			}

			raw := gopacket.NewPacket(data, s.reader.LinkType(), gopacket.DecodeStreaming)
			raw.Metadata().CaptureInfo = ci

			if !yield(packet.Wrap(raw)) {
				return
			}
			index++
		}
	}
}

// Close releases the underlying file (and gzip reader, if any).
func (s *Streamer) Close() error {
	if s.gz != nil {
		s.gz.Close()
	}
	return s.file.Close()
}
