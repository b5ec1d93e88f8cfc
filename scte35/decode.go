package scte35

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"strings"
)

// reader walks a byte slice with explicit bounds checks so that malformed
// payloads surface as ErrTruncated instead of panics.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

func (r *reader) readByte() (byte, error) {
	if r.remaining() < 1 {
		return 0, ErrTruncated
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) readUint16() (uint16, error) {
	if r.remaining() < 2 {
		return 0, ErrTruncated
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) readUint32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, ErrTruncated
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, ErrTruncated
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// DecodeBase64 parses a splice_info_section from its base64 text form, the
// encoding used by EXT-X-DATERANGE and EXT-OATCLS-SCTE35 attributes.
func DecodeBase64(s string) (*SpliceInfoSection, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, ErrUnsupportedEncoding
	}
	return Decode(data)
}

// DecodeHex parses a splice_info_section from hex text, with or without a
// leading 0x prefix.
func DecodeHex(s string) (*SpliceInfoSection, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrUnsupportedEncoding
	}
	return Decode(data)
}

// DecodeString parses a cue in whichever text encoding it arrives in: hex
// when it carries a 0x prefix or is all hex digits, base64 otherwise.
func DecodeString(s string) (*SpliceInfoSection, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") || isHexString(s) {
		if section, err := DecodeHex(s); err == nil {
			return section, nil
		}
	}
	return DecodeBase64(s)
}

func isHexString(s string) bool {
	if len(s) == 0 || len(s)%2 != 0 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Decode parses a splice_info_section from raw bytes. It never returns a
// partially populated message: any malformed input yields a nil section and
// ErrBadTableID or ErrTruncated.
func Decode(data []byte) (*SpliceInfoSection, error) {
	r := &reader{data: data}
	section := &SpliceInfoSection{}

	tableID, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if tableID != TableID {
		return nil, ErrBadTableID
	}
	section.TableID = tableID

	flags, err := r.readUint16()
	if err != nil {
		return nil, err
	}
	section.SectionSyntaxIndicator = flags&0x8000 != 0
	section.PrivateIndicator = flags&0x4000 != 0
	section.SectionLength = flags & 0x0FFF

	if section.ProtocolVersion, err = r.readByte(); err != nil {
		return nil, err
	}

	encByte, err := r.readByte()
	if err != nil {
		return nil, err
	}
	section.EncryptedPacket = encByte&0x80 != 0
	section.EncryptionAlgorithm = (encByte >> 1) & 0x3F

	// pts_adjustment: 33 bits, the low bit of the encryption byte plus the
	// next four bytes.
	ptsLow, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	section.PTSAdjustment = uint64(encByte&0x01)<<32 | uint64(ptsLow)

	if section.CWIndex, err = r.readByte(); err != nil {
		return nil, err
	}

	if section.Tier, err = r.readUint16(); err != nil {
		return nil, err
	}

	cmdLen, err := r.readByte()
	if err != nil {
		return nil, err
	}
	section.SpliceCommandLength = uint16(cmdLen)

	if section.SpliceCommandType, err = r.readByte(); err != nil {
		return nil, err
	}

	if cmdLen > 0 {
		cmdData, err := r.readBytes(int(cmdLen))
		if err != nil {
			return nil, err
		}
		cmd, err := decodeCommand(section.SpliceCommandType, cmdData)
		if err != nil {
			return nil, err
		}
		section.SpliceCommand = cmd
	} else if section.SpliceCommandType == CmdSpliceNull {
		section.SpliceCommand = &SpliceNull{}
	}

	loopLen, err := r.readUint16()
	if err != nil {
		return nil, err
	}
	section.DescriptorLoopLength = loopLen

	loopData, err := r.readBytes(int(loopLen))
	if err != nil {
		return nil, err
	}
	if section.Descriptors, err = decodeDescriptorLoop(loopData); err != nil {
		return nil, err
	}

	if section.CRC32, err = r.readUint32(); err != nil {
		return nil, err
	}

	return section, nil
}

func decodeCommand(cmdType uint8, data []byte) (SpliceCommand, error) {
	switch cmdType {
	case CmdSpliceNull:
		return &SpliceNull{}, nil
	case CmdSpliceInsert:
		return decodeSpliceInsert(data)
	case CmdTimeSignal:
		return decodeTimeSignal(data)
	default:
		// Unrecognized commands are preserved, not rejected.
		raw := make([]byte, len(data))
		copy(raw, data)
		return &RawCommand{Type: cmdType, Data: raw}, nil
	}
}

func decodeSpliceInsert(data []byte) (*SpliceInsert, error) {
	r := &reader{data: data}
	insert := &SpliceInsert{}

	var err error
	if insert.SpliceEventID, err = r.readUint32(); err != nil {
		return nil, err
	}

	flags, err := r.readByte()
	if err != nil {
		return nil, err
	}
	insert.SpliceEventCancelInd = flags&0x80 != 0
	if insert.SpliceEventCancelInd {
		return insert, nil
	}

	insert.OutOfNetworkInd = flags&0x40 != 0
	insert.ProgramSpliceFlag = flags&0x20 != 0
	insert.DurationFlag = flags&0x10 != 0
	insert.SpliceImmediateFlag = flags&0x08 != 0

	if insert.ProgramSpliceFlag && !insert.SpliceImmediateFlag {
		if insert.SpliceTime, err = decodeSpliceTime(r); err != nil {
			return nil, err
		}
	}

	if insert.DurationFlag {
		if insert.BreakDuration, err = decodeBreakDuration(r); err != nil {
			return nil, err
		}
	}

	if insert.UniqueProgramID, err = r.readUint16(); err != nil {
		return nil, err
	}
	if insert.AvailNum, err = r.readByte(); err != nil {
		return nil, err
	}
	if insert.AvailsExpected, err = r.readByte(); err != nil {
		return nil, err
	}

	return insert, nil
}

func decodeTimeSignal(data []byte) (*TimeSignal, error) {
	r := &reader{data: data}
	spliceTime, err := decodeSpliceTime(r)
	if err != nil {
		return nil, err
	}
	return &TimeSignal{SpliceTime: spliceTime}, nil
}

func decodeSpliceTime(r *reader) (*SpliceTime, error) {
	first, err := r.readByte()
	if err != nil {
		return nil, err
	}

	st := &SpliceTime{TimeSpecifiedFlag: first&0x80 != 0}
	if !st.TimeSpecifiedFlag {
		return st, nil
	}

	// 33-bit PTS: low bit of the flag byte plus the next four bytes.
	low, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	st.PTSTime = uint64(first&0x01)<<32 | uint64(low)
	return st, nil
}

func decodeBreakDuration(r *reader) (*BreakDuration, error) {
	first, err := r.readByte()
	if err != nil {
		return nil, err
	}
	low, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	return &BreakDuration{
		AutoReturn: first&0x80 != 0,
		Duration:   uint64(first&0x01)<<32 | uint64(low),
	}, nil
}

func decodeDescriptorLoop(data []byte) ([]SpliceDescriptor, error) {
	r := &reader{data: data}
	var descriptors []SpliceDescriptor

	for r.remaining() > 0 {
		tag, err := r.readByte()
		if err != nil {
			return nil, err
		}
		length, err := r.readByte()
		if err != nil {
			return nil, err
		}
		payload, err := r.readBytes(int(length))
		if err != nil {
			return nil, err
		}

		desc, err := decodeDescriptor(tag, payload)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, desc)
	}

	return descriptors, nil
}

func decodeDescriptor(tag uint8, payload []byte) (SpliceDescriptor, error) {
	switch tag {
	case TagAvail:
		r := &reader{data: payload}
		id, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		return &AvailDescriptor{ProviderAvailID: id}, nil
	case TagDTMF:
		r := &reader{data: payload}
		preroll, err := r.readByte()
		if err != nil {
			return nil, err
		}
		// dtmf_count sits in the top 3 bits; the low 5 are reserved.
		countByte, err := r.readByte()
		if err != nil {
			return nil, err
		}
		chars, err := r.readBytes(int(countByte >> 5))
		if err != nil {
			return nil, err
		}
		return &DTMFDescriptor{Preroll: preroll, DTMF: string(chars)}, nil
	case TagSegmentation:
		return decodeSegmentationDescriptor(payload)
	default:
		raw := make([]byte, len(payload))
		copy(raw, payload)
		return &RawDescriptor{DescriptorTag: tag, Data: raw}, nil
	}
}

func decodeSegmentationDescriptor(payload []byte) (*SegmentationDescriptor, error) {
	r := &reader{data: payload}
	desc := &SegmentationDescriptor{}

	ident, err := r.readBytes(4)
	if err != nil {
		return nil, err
	}
	desc.Identifier = string(ident)

	if desc.SegmentationEventID, err = r.readUint32(); err != nil {
		return nil, err
	}

	cancelByte, err := r.readByte()
	if err != nil {
		return nil, err
	}
	desc.SegmentationEventCancelInd = cancelByte&0x80 != 0
	if desc.SegmentationEventCancelInd {
		return desc, nil
	}

	flags, err := r.readByte()
	if err != nil {
		return nil, err
	}
	desc.ProgramSegmentationFlag = flags&0x80 != 0
	desc.SegmentationDurationFlag = flags&0x40 != 0
	desc.DeliveryNotRestrictedFlag = flags&0x20 != 0

	if !desc.DeliveryNotRestrictedFlag {
		desc.WebDeliveryAllowedFlag = flags&0x10 != 0
		desc.NoRegionalBlackoutFlag = flags&0x08 != 0
		desc.ArchiveAllowedFlag = flags&0x04 != 0
		desc.DeviceRestrictions = flags & 0x03
	}

	if !desc.ProgramSegmentationFlag {
		// Component mode: skip the component splice point list.
		count, err := r.readByte()
		if err != nil {
			return nil, err
		}
		if _, err := r.readBytes(int(count) * 6); err != nil {
			return nil, err
		}
	}

	if desc.SegmentationDurationFlag {
		// 40-bit duration.
		high, err := r.readByte()
		if err != nil {
			return nil, err
		}
		low, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		desc.SegmentationDuration = uint64(high)<<32 | uint64(low)
	}

	if desc.SegmentationUPIDType, err = r.readByte(); err != nil {
		return nil, err
	}
	upidLen, err := r.readByte()
	if err != nil {
		return nil, err
	}
	upid, err := r.readBytes(int(upidLen))
	if err != nil {
		return nil, err
	}
	desc.SegmentationUPID = make([]byte, upidLen)
	copy(desc.SegmentationUPID, upid)

	if desc.SegmentationTypeID, err = r.readByte(); err != nil {
		return nil, err
	}
	if desc.SegmentNum, err = r.readByte(); err != nil {
		return nil, err
	}
	if desc.SegmentsExpected, err = r.readByte(); err != nil {
		return nil, err
	}

	return desc, nil
}
