package vm

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Segment is a contiguous range of memory starting at Base.
// Segments are never resized once they are part of a Memory.
type Segment struct {
	Base uint32
	Data []byte
}

// End returns the first address past the segment.
func (s *Segment) End() uint64 {
	return uint64(s.Base) + uint64(len(s.Data))
}

func (s *Segment) contains(addr uint32, size uint32) bool {
	return addr >= s.Base && uint64(addr)+uint64(size) <= s.End()
}

// Memory is the address space of the emulated program: an ordered set of
// non-overlapping segments.
type Memory struct {
	segments []*Segment // sorted by Base

	entry uint32

	// two caches: we often fetch instructions from one segment, and do memory things with another segment.
	// this prevents a search on every access
	lastSeg [2]*Segment
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SegmentCount() int {
	return len(m.segments)
}

// Segments returns the segments in address order. The byte slices are shared
// with the memory, the slice itself is a copy.
func (m *Memory) Segments() []*Segment {
	out := make([]*Segment, len(m.segments))
	copy(out, m.segments)
	return out
}

// EntryPoint returns the program entry point recorded while loading.
func (m *Memory) EntryPoint() uint32 {
	return m.entry
}

func (m *Memory) SetEntryPoint(addr uint32) {
	m.entry = addr
}

// AddSegment places data at base. The new segment must not overlap any
// existing one.
func (m *Memory) AddSegment(base uint32, data []byte) (*Segment, error) {
	seg := &Segment{Base: base, Data: data}
	if seg.End() > 1<<32 {
		return nil, fmt.Errorf("segment at %08x with size %d exceeds the 32-bit address space", base, len(data))
	}
	i := sort.Search(len(m.segments), func(i int) bool {
		return m.segments[i].Base >= base
	})
	if i > 0 {
		if prev := m.segments[i-1]; prev.End() > uint64(base) {
			return nil, fmt.Errorf("%w: [%08x, %x) and [%08x, %x)", ErrSegmentOverlap, prev.Base, prev.End(), base, seg.End())
		}
	}
	if i < len(m.segments) && len(data) > 0 {
		if next := m.segments[i]; uint64(next.Base) < seg.End() {
			return nil, fmt.Errorf("%w: [%08x, %x) and [%08x, %x)", ErrSegmentOverlap, base, seg.End(), next.Base, next.End())
		}
	}
	m.segments = append(m.segments, nil)
	copy(m.segments[i+1:], m.segments[i:])
	m.segments[i] = seg
	return seg, nil
}

// AllocStack pre-allocates a zeroed segment covering [top-size, top).
func (m *Memory) AllocStack(top uint32, size uint32) (*Segment, error) {
	if size > top {
		return nil, fmt.Errorf("stack of %d bytes does not fit below %08x", size, top)
	}
	seg, err := m.AddSegment(top-size, make([]byte, size))
	if err != nil {
		return nil, fmt.Errorf("failed to allocate stack: %w", err)
	}
	return seg, nil
}

func (m *Memory) segmentLookup(addr uint32, size uint32) (*Segment, error) {
	// hit caches
	if s := m.lastSeg[0]; s != nil && s.contains(addr, size) {
		return s, nil
	}
	if s := m.lastSeg[1]; s != nil && s.contains(addr, size) {
		m.lastSeg[0], m.lastSeg[1] = s, m.lastSeg[0]
		return s, nil
	}
	// first segment with a higher base, the candidate is the one before it
	i := sort.Search(len(m.segments), func(i int) bool {
		return m.segments[i].Base > addr
	})
	if i == 0 || !m.segments[i-1].contains(addr, size) {
		return nil, &Fault{Kind: FaultUnmapped, Addr: addr, Size: size}
	}
	s := m.segments[i-1]
	m.lastSeg[1] = m.lastSeg[0]
	m.lastSeg[0] = s
	return s, nil
}

func (m *Memory) resolve(addr uint32, size uint32) ([]byte, error) {
	if addr&(size-1) != 0 {
		return nil, &Fault{Kind: FaultAlignment, Addr: addr, Size: size}
	}
	s, err := m.segmentLookup(addr, size)
	if err != nil {
		return nil, err
	}
	off := addr - s.Base
	return s.Data[off : off+size], nil
}

func (m *Memory) Read8(addr uint32) (uint32, error) {
	b, err := m.resolve(addr, 1)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]), nil
}

func (m *Memory) Read16(addr uint32) (uint32, error) {
	b, err := m.resolve(addr, 2)
	if err != nil {
		return 0, err
	}
	return uint32(binary.LittleEndian.Uint16(b)), nil
}

func (m *Memory) Read32(addr uint32) (uint32, error) {
	b, err := m.resolve(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (m *Memory) Write8(addr uint32, v uint32) error {
	b, err := m.resolve(addr, 1)
	if err != nil {
		return err
	}
	b[0] = uint8(v)
	return nil
}

func (m *Memory) Write16(addr uint32, v uint32) error {
	b, err := m.resolve(addr, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, uint16(v))
	return nil
}

func (m *Memory) Write32(addr uint32, v uint32) error {
	b, err := m.resolve(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, v)
	return nil
}

// ReadMemoryRange returns a reader over count bytes starting at addr.
// The whole range must lie in a single segment.
func (m *Memory) ReadMemoryRange(addr uint32, count uint32) (io.Reader, error) {
	s, err := m.segmentLookup(addr, count)
	if err != nil {
		return nil, err
	}
	off := addr - s.Base
	return bytes.NewReader(s.Data[off : off+count]), nil
}

// SetMemoryRange copies the contents of r into memory starting at addr.
// Every written byte must fall inside a single existing segment.
func (m *Memory) SetMemoryRange(addr uint32, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if uint64(addr)+uint64(len(data)) > 1<<32 {
		return &Fault{Kind: FaultUnmapped, Addr: addr, Size: uint32(len(data))}
	}
	s, err := m.segmentLookup(addr, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(s.Data[addr-s.Base:], data)
	return nil
}

func (m *Memory) Size() uint64 {
	var total uint64
	for _, s := range m.segments {
		total += uint64(len(s.Data))
	}
	return total
}

func (m *Memory) Usage() string {
	total := m.Size()
	const unit = 1024
	if total < unit {
		return fmt.Sprintf("%d B", total)
	}
	div, exp := uint64(unit), 0
	for n := total / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	// KiB, MiB, GiB, ...
	return fmt.Sprintf("%.1f %ciB", float64(total)/float64(div), "KMGTPE"[exp])
}

// encodeWitness appends the entry point and every segment (base, length,
// content) to out.
func (m *Memory) encodeWitness(out []byte) []byte {
	out = binary.BigEndian.AppendUint32(out, m.entry)
	out = binary.BigEndian.AppendUint32(out, uint32(len(m.segments)))
	for _, s := range m.segments {
		out = binary.BigEndian.AppendUint32(out, s.Base)
		out = binary.BigEndian.AppendUint32(out, uint32(len(s.Data)))
		out = append(out, s.Data...)
	}
	return out
}

type segmentEntry struct {
	Base hexutil.Uint64 `json:"base"`
	Data hexutil.Bytes  `json:"data"`
}

type memoryJSON struct {
	Entry    hexutil.Uint64 `json:"entry"`
	Segments []segmentEntry `json:"segments"`
}

func (m *Memory) MarshalJSON() ([]byte, error) {
	out := memoryJSON{
		Entry:    hexutil.Uint64(m.entry),
		Segments: make([]segmentEntry, 0, len(m.segments)),
	}
	for _, s := range m.segments {
		out.Segments = append(out.Segments, segmentEntry{
			Base: hexutil.Uint64(s.Base),
			Data: s.Data,
		})
	}
	return json.Marshal(out)
}

func (m *Memory) UnmarshalJSON(data []byte) error {
	var in memoryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if uint64(in.Entry) >= 1<<32 {
		return fmt.Errorf("entry point %x exceeds the 32-bit address space", uint64(in.Entry))
	}
	m.segments = nil
	m.lastSeg = [2]*Segment{nil, nil}
	m.entry = uint32(in.Entry)
	for i, s := range in.Segments {
		if uint64(s.Base) >= 1<<32 {
			return fmt.Errorf("segment %d base %x exceeds the 32-bit address space", i, uint64(s.Base))
		}
		if _, err := m.AddSegment(uint32(s.Base), s.Data); err != nil {
			return fmt.Errorf("cannot load segment %d: %w", i, err)
		}
	}
	return nil
}
