// Package scte35 decodes SCTE-35 splice information sections as carried in
// HLS playlist tags. Decoding is strict about bounds: a payload that ends
// before a field completes yields ErrTruncated rather than a partial message.
package scte35

import "errors"

// TableID is the fixed table_id of every splice_info_section.
const TableID = 0xFC

// Splice command types
const (
	CmdSpliceNull           = 0x00
	CmdSpliceSchedule       = 0x04
	CmdSpliceInsert         = 0x05
	CmdTimeSignal           = 0x06
	CmdBandwidthReservation = 0x07
	CmdPrivate              = 0xFF
)

// Splice descriptor tags
const (
	TagAvail        = 0x00
	TagDTMF         = 0x01
	TagSegmentation = 0x02
)

// TicksPerSecond is the 90 kHz clock rate used by all SCTE-35 time fields.
const TicksPerSecond = 90000

// Decode errors
var (
	ErrBadTableID          = errors.New("scte35: table_id is not 0xFC")
	ErrTruncated           = errors.New("scte35: payload truncated")
	ErrUnsupportedEncoding = errors.New("scte35: unsupported cue encoding")
)

// SpliceInfoSection is a decoded splice_info_section.
type SpliceInfoSection struct {
	TableID                uint8
	SectionSyntaxIndicator bool
	PrivateIndicator       bool
	SectionLength          uint16
	ProtocolVersion        uint8
	EncryptedPacket        bool
	EncryptionAlgorithm    uint8
	PTSAdjustment          uint64 // 33-bit, 90 kHz ticks
	CWIndex                uint8
	Tier                   uint16
	SpliceCommandLength    uint16
	SpliceCommandType      uint8
	SpliceCommand          SpliceCommand
	DescriptorLoopLength   uint16
	Descriptors            []SpliceDescriptor
	CRC32                  uint32 // captured, not validated
}

// SpliceCommand is implemented by all splice command payloads.
type SpliceCommand interface {
	CommandType() uint8
	Encode() []byte
}

// SpliceNull is the splice_null() command.
type SpliceNull struct{}

func (s *SpliceNull) CommandType() uint8 { return CmdSpliceNull }
func (s *SpliceNull) Encode() []byte     { return []byte{} }

// SpliceInsert is the splice_insert() command.
type SpliceInsert struct {
	SpliceEventID        uint32
	SpliceEventCancelInd bool
	OutOfNetworkInd      bool
	ProgramSpliceFlag    bool
	DurationFlag         bool
	SpliceImmediateFlag  bool
	SpliceTime           *SpliceTime
	BreakDuration        *BreakDuration
	UniqueProgramID      uint16
	AvailNum             uint8
	AvailsExpected       uint8
}

func (s *SpliceInsert) CommandType() uint8 { return CmdSpliceInsert }

// TimeSignal is the time_signal() command.
type TimeSignal struct {
	SpliceTime *SpliceTime
}

func (t *TimeSignal) CommandType() uint8 { return CmdTimeSignal }

// RawCommand preserves an unrecognized splice command untouched.
type RawCommand struct {
	Type uint8
	Data []byte
}

func (r *RawCommand) CommandType() uint8 { return r.Type }
func (r *RawCommand) Encode() []byte     { return r.Data }

// SpliceTime is the splice_time() structure: a flag plus an optional 33-bit PTS.
type SpliceTime struct {
	TimeSpecifiedFlag bool
	PTSTime           uint64 // 33-bit, 90 kHz ticks
}

// BreakDuration carries the expected length of a break.
type BreakDuration struct {
	AutoReturn bool
	Duration   uint64 // 33-bit, 90 kHz ticks
}

// Seconds converts the break duration to seconds.
func (b *BreakDuration) Seconds() float64 {
	return float64(b.Duration) / TicksPerSecond
}

// SpliceDescriptor is implemented by all descriptor loop entries.
type SpliceDescriptor interface {
	Tag() uint8
	Encode() []byte
}

// AvailDescriptor is the avail_descriptor (tag 0x00).
type AvailDescriptor struct {
	ProviderAvailID uint32
}

func (a *AvailDescriptor) Tag() uint8 { return TagAvail }

// DTMFDescriptor is the DTMF_descriptor (tag 0x01).
type DTMFDescriptor struct {
	Preroll uint8
	DTMF    string
}

func (d *DTMFDescriptor) Tag() uint8 { return TagDTMF }

// SegmentationDescriptor is the segmentation_descriptor (tag 0x02).
type SegmentationDescriptor struct {
	Identifier                 string // 4-byte ASCII, normally "CUEI"
	SegmentationEventID        uint32
	SegmentationEventCancelInd bool
	ProgramSegmentationFlag    bool
	SegmentationDurationFlag   bool
	DeliveryNotRestrictedFlag  bool
	WebDeliveryAllowedFlag     bool
	NoRegionalBlackoutFlag     bool
	ArchiveAllowedFlag         bool
	DeviceRestrictions         uint8
	SegmentationDuration       uint64 // 40-bit, 90 kHz ticks
	SegmentationUPIDType       uint8
	SegmentationUPID           []byte
	SegmentationTypeID         uint8
	SegmentNum                 uint8
	SegmentsExpected           uint8
}

func (s *SegmentationDescriptor) Tag() uint8 { return TagSegmentation }

// DurationSeconds converts the segmentation duration to seconds.
func (s *SegmentationDescriptor) DurationSeconds() float64 {
	return float64(s.SegmentationDuration) / TicksPerSecond
}

// RawDescriptor preserves an unrecognized descriptor untouched.
type RawDescriptor struct {
	DescriptorTag uint8
	Data          []byte
}

func (r *RawDescriptor) Tag() uint8 { return r.DescriptorTag }

// TicksToSeconds converts a 90 kHz tick count to seconds.
func TicksToSeconds(ticks uint64) float64 {
	return float64(ticks) / TicksPerSecond
}

// SecondsToTicks converts seconds to 90 kHz ticks.
func SecondsToTicks(seconds float64) uint64 {
	return uint64(seconds * TicksPerSecond)
}
