package scte35

import "encoding/binary"

func (s *SpliceInsert) Encode() []byte {
	var data []byte

	eventID := make([]byte, 4)
	binary.BigEndian.PutUint32(eventID, s.SpliceEventID)
	data = append(data, eventID...)

	flags := uint8(0)
	if s.SpliceEventCancelInd {
		flags |= 0x80
	} else {
		if s.OutOfNetworkInd {
			flags |= 0x40
		}
		if s.ProgramSpliceFlag {
			flags |= 0x20
		}
		if s.DurationFlag {
			flags |= 0x10
		}
		if s.SpliceImmediateFlag {
			flags |= 0x08
		}
	}
	data = append(data, flags)

	if s.SpliceEventCancelInd {
		return data
	}

	if s.ProgramSpliceFlag && !s.SpliceImmediateFlag && s.SpliceTime != nil {
		data = append(data, s.SpliceTime.Encode()...)
	}
	if s.DurationFlag && s.BreakDuration != nil {
		data = append(data, s.BreakDuration.Encode()...)
	}

	uniqueID := make([]byte, 2)
	binary.BigEndian.PutUint16(uniqueID, s.UniqueProgramID)
	data = append(data, uniqueID...)
	data = append(data, s.AvailNum, s.AvailsExpected)

	return data
}

func (t *TimeSignal) Encode() []byte {
	if t.SpliceTime != nil {
		return t.SpliceTime.Encode()
	}
	return []byte{0x7F} // time_specified_flag = 0
}

func (s *SpliceTime) Encode() []byte {
	if !s.TimeSpecifiedFlag {
		return []byte{0x7F}
	}
	data := make([]byte, 5)
	data[0] = 0xFE | uint8((s.PTSTime>>32)&0x01)
	binary.BigEndian.PutUint32(data[1:], uint32(s.PTSTime))
	return data
}

func (b *BreakDuration) Encode() []byte {
	data := make([]byte, 5)
	data[0] = 0x7E | uint8((b.Duration>>32)&0x01)
	if b.AutoReturn {
		data[0] |= 0x80
	}
	binary.BigEndian.PutUint32(data[1:], uint32(b.Duration))
	return data
}

func (a *AvailDescriptor) Encode() []byte {
	data := make([]byte, 6)
	data[0] = TagAvail
	data[1] = 4
	binary.BigEndian.PutUint32(data[2:], a.ProviderAvailID)
	return data
}

func (d *DTMFDescriptor) Encode() []byte {
	data := make([]byte, 0, 4+len(d.DTMF))
	data = append(data, TagDTMF, uint8(2+len(d.DTMF)), d.Preroll,
		uint8(len(d.DTMF))<<5|0x1F)
	data = append(data, d.DTMF...)
	return data
}

func (s *SegmentationDescriptor) Encode() []byte {
	var body []byte

	ident := s.Identifier
	if len(ident) != 4 {
		ident = "CUEI"
	}
	body = append(body, ident...)

	eventID := make([]byte, 4)
	binary.BigEndian.PutUint32(eventID, s.SegmentationEventID)
	body = append(body, eventID...)

	cancelByte := uint8(0x7F)
	if s.SegmentationEventCancelInd {
		cancelByte |= 0x80
	}
	body = append(body, cancelByte)

	if !s.SegmentationEventCancelInd {
		flags := uint8(0)
		if s.ProgramSegmentationFlag {
			flags |= 0x80
		}
		if s.SegmentationDurationFlag {
			flags |= 0x40
		}
		if s.DeliveryNotRestrictedFlag {
			flags |= 0x20
		} else {
			if s.WebDeliveryAllowedFlag {
				flags |= 0x10
			}
			if s.NoRegionalBlackoutFlag {
				flags |= 0x08
			}
			if s.ArchiveAllowedFlag {
				flags |= 0x04
			}
			flags |= s.DeviceRestrictions & 0x03
		}
		body = append(body, flags)

		if !s.ProgramSegmentationFlag {
			body = append(body, 0x00) // component_count
		}

		if s.SegmentationDurationFlag {
			body = append(body, uint8(s.SegmentationDuration>>32))
			dur := make([]byte, 4)
			binary.BigEndian.PutUint32(dur, uint32(s.SegmentationDuration))
			body = append(body, dur...)
		}

		body = append(body, s.SegmentationUPIDType, uint8(len(s.SegmentationUPID)))
		body = append(body, s.SegmentationUPID...)
		body = append(body, s.SegmentationTypeID, s.SegmentNum, s.SegmentsExpected)
	}

	data := make([]byte, 0, 2+len(body))
	data = append(data, TagSegmentation, uint8(len(body)))
	data = append(data, body...)
	return data
}

func (r *RawDescriptor) Encode() []byte {
	data := make([]byte, 0, 2+len(r.Data))
	data = append(data, r.DescriptorTag, uint8(len(r.Data)))
	data = append(data, r.Data...)
	return data
}

// Encode serializes the section back to splice_info_section bytes. Section
// length, command length, descriptor loop length and CRC are recomputed; the
// stored values are ignored.
func (s *SpliceInfoSection) Encode() []byte {
	var data []byte

	data = append(data, TableID)

	// Section length placeholder, patched once the body is complete.
	lengthPos := len(data)
	data = append(data, 0x00, 0x00)

	data = append(data, s.ProtocolVersion)

	encByte := uint8(0)
	if s.EncryptedPacket {
		encByte |= 0x80
	}
	encByte |= (s.EncryptionAlgorithm & 0x3F) << 1
	encByte |= uint8(s.PTSAdjustment>>32) & 0x01
	data = append(data, encByte)

	ptsLow := make([]byte, 4)
	binary.BigEndian.PutUint32(ptsLow, uint32(s.PTSAdjustment))
	data = append(data, ptsLow...)

	data = append(data, s.CWIndex)

	tier := make([]byte, 2)
	binary.BigEndian.PutUint16(tier, s.Tier)
	data = append(data, tier...)

	var cmdData []byte
	cmdType := s.SpliceCommandType
	if s.SpliceCommand != nil {
		cmdType = s.SpliceCommand.CommandType()
		cmdData = s.SpliceCommand.Encode()
	}
	data = append(data, uint8(len(cmdData)), cmdType)
	data = append(data, cmdData...)

	var descData []byte
	for _, desc := range s.Descriptors {
		descData = append(descData, desc.Encode()...)
	}
	loopLen := make([]byte, 2)
	binary.BigEndian.PutUint16(loopLen, uint16(len(descData)))
	data = append(data, loopLen...)
	data = append(data, descData...)

	sectionLength := len(data) - 3 + 4 // excludes the 3 header bytes, includes CRC
	binary.BigEndian.PutUint16(data[lengthPos:], 0x3000|uint16(sectionLength)&0x0FFF)

	crc := make([]byte, 4)
	binary.BigEndian.PutUint32(crc, crc32MPEG2(data))
	data = append(data, crc...)

	return data
}

// crc32MPEG2 computes the MPEG-2 CRC-32 used by splice_info_section. The
// hash/crc32 package only implements reflected variants, so this one is
// written out directly.
func crc32MPEG2(data []byte) uint32 {
	crc := uint32(0xFFFFFFFF)
	for _, b := range data {
		crc ^= uint32(b) << 24
		for i := 0; i < 8; i++ {
			if crc&0x80000000 != 0 {
				crc = crc<<1 ^ 0x04C11DB7
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// NewAdBreakStart builds an immediate out-of-network splice_insert, the shape
// most ad insertion systems emit at the top of a break.
func NewAdBreakStart(eventID uint32, duration float64) *SpliceInfoSection {
	return &SpliceInfoSection{
		TableID:           TableID,
		Tier:              0x0FFF,
		SpliceCommandType: CmdSpliceInsert,
		SpliceCommand: &SpliceInsert{
			SpliceEventID:       eventID,
			OutOfNetworkInd:     true,
			ProgramSpliceFlag:   true,
			DurationFlag:        duration > 0,
			SpliceImmediateFlag: true,
			BreakDuration: &BreakDuration{
				AutoReturn: true,
				Duration:   SecondsToTicks(duration),
			},
		},
	}
}

// NewAdBreakEnd builds the matching return-to-network splice_insert.
func NewAdBreakEnd(eventID uint32) *SpliceInfoSection {
	return &SpliceInfoSection{
		TableID:           TableID,
		Tier:              0x0FFF,
		SpliceCommandType: CmdSpliceInsert,
		SpliceCommand: &SpliceInsert{
			SpliceEventID:       eventID,
			ProgramSpliceFlag:   true,
			SpliceImmediateFlag: true,
		},
	}
}

// NewTimeSignal builds a time_signal section at the given 90 kHz PTS.
func NewTimeSignal(ptsTime uint64) *SpliceInfoSection {
	return &SpliceInfoSection{
		TableID:           TableID,
		Tier:              0x0FFF,
		SpliceCommandType: CmdTimeSignal,
		SpliceCommand: &TimeSignal{
			SpliceTime: &SpliceTime{
				TimeSpecifiedFlag: true,
				PTSTime:           ptsTime,
			},
		},
	}
}
