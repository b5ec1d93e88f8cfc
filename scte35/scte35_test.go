package scte35

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSpliceInsert(t *testing.T) {
	data := NewAdBreakStart(1234, 30.0).Encode()

	section, err := Decode(data)
	require.NoError(t, err)
	require.NotNil(t, section)

	assert.Equal(t, uint8(TableID), section.TableID)
	assert.Equal(t, uint8(CmdSpliceInsert), section.SpliceCommandType)

	insert, ok := section.SpliceCommand.(*SpliceInsert)
	require.True(t, ok, "expected a splice_insert command")
	assert.Equal(t, uint32(1234), insert.SpliceEventID)
	assert.True(t, insert.OutOfNetworkInd)
	assert.True(t, insert.ProgramSpliceFlag)
	assert.True(t, insert.SpliceImmediateFlag)
	assert.True(t, insert.DurationFlag)

	require.NotNil(t, insert.BreakDuration)
	assert.True(t, insert.BreakDuration.AutoReturn)
	assert.InDelta(t, 30.0, insert.BreakDuration.Seconds(), 0.001)

	assert.Equal(t, ClassificationAdStart, section.Classify())
	assert.True(t, section.IsAdBreakStart())
	assert.False(t, section.IsAdBreakEnd())
}

func TestDecodeReturnToNetwork(t *testing.T) {
	section, err := Decode(NewAdBreakEnd(1234).Encode())
	require.NoError(t, err)

	insert, ok := section.SpliceCommand.(*SpliceInsert)
	require.True(t, ok)
	assert.False(t, insert.OutOfNetworkInd)
	assert.Nil(t, insert.BreakDuration)
	assert.Equal(t, ClassificationAdEnd, section.Classify())
}

func TestDecodeTimeSignal(t *testing.T) {
	const pts = uint64(1936310318)

	section, err := Decode(NewTimeSignal(pts).Encode())
	require.NoError(t, err)

	assert.Equal(t, uint8(CmdTimeSignal), section.SpliceCommandType)
	got, ok := section.SplicePTS()
	require.True(t, ok)
	assert.Equal(t, pts, got)
	assert.Equal(t, ClassificationNeutral, section.Classify())
}

func TestDecodeRejectsBadTableID(t *testing.T) {
	data := NewAdBreakEnd(1).Encode()
	data[0] = 0x4E

	section, err := Decode(data)
	assert.ErrorIs(t, err, ErrBadTableID)
	assert.Nil(t, section)
}

func TestDecodeTruncatedAtEveryLength(t *testing.T) {
	data := NewAdBreakStart(42, 15.0).Encode()

	for n := 0; n < len(data); n++ {
		section, err := Decode(data[:n])
		assert.ErrorIs(t, err, ErrTruncated, "prefix of %d bytes", n)
		assert.Nil(t, section)
	}
}

func TestPTSRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pts  uint64
	}{
		{"zero", 0},
		{"small", 90000},
		{"above 32 bits", 1<<32 + 12345},
		{"max 33 bits", 1<<33 - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			section, err := Decode(NewTimeSignal(tt.pts).Encode())
			require.NoError(t, err)

			got, ok := section.SplicePTS()
			require.True(t, ok)
			assert.Equal(t, tt.pts, got)
		})
	}
}

func TestPTSAdjustmentRoundTrip(t *testing.T) {
	original := NewTimeSignal(100)
	original.PTSAdjustment = 1<<32 + 7

	section, err := Decode(original.Encode())
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<32+7), section.PTSAdjustment)
}

func TestDTMFDescriptorRoundTrip(t *testing.T) {
	original := NewTimeSignal(900000)
	original.Descriptors = append(original.Descriptors, &DTMFDescriptor{
		Preroll: 177,
		DTMF:    "121#",
	})

	encoded := original.Encode()
	section, err := Decode(encoded)
	require.NoError(t, err)
	require.Len(t, section.Descriptors, 1)

	dtmf, ok := section.Descriptors[0].(*DTMFDescriptor)
	require.True(t, ok)
	assert.Equal(t, uint8(177), dtmf.Preroll)
	assert.Equal(t, "121#", dtmf.DTMF)
}

func TestDTMFDescriptorWireLayout(t *testing.T) {
	// preroll, then dtmf_count in the top 3 bits of a reserved byte, then
	// the characters; the count byte must not leak into the string.
	data := (&DTMFDescriptor{Preroll: 50, DTMF: "908"}).Encode()

	require.Len(t, data, 7)
	assert.Equal(t, uint8(TagDTMF), data[0])
	assert.Equal(t, uint8(5), data[1])
	assert.Equal(t, uint8(50), data[2])
	assert.Equal(t, uint8(3), data[3]>>5)
	assert.Equal(t, "908", string(data[4:]))

	desc, err := decodeDescriptor(data[0], data[2:])
	require.NoError(t, err)
	dtmf, ok := desc.(*DTMFDescriptor)
	require.True(t, ok)
	assert.Equal(t, "908", dtmf.DTMF)
}

func TestSegmentationDescriptorRoundTrip(t *testing.T) {
	original := NewTimeSignal(2700000)
	original.Descriptors = append(original.Descriptors, &SegmentationDescriptor{
		Identifier:                "CUEI",
		SegmentationEventID:       77,
		ProgramSegmentationFlag:   true,
		SegmentationDurationFlag:  true,
		DeliveryNotRestrictedFlag: true,
		SegmentationDuration:      SecondsToTicks(60),
		SegmentationUPIDType:      0x08,
		SegmentationUPID:          []byte{0x00, 0x00, 0x00, 0x2A},
		SegmentationTypeID:        SegTypeProviderPOStart,
		SegmentNum:                1,
		SegmentsExpected:          1,
	})

	section, err := Decode(original.Encode())
	require.NoError(t, err)
	require.Len(t, section.Descriptors, 1)

	seg, ok := section.Descriptors[0].(*SegmentationDescriptor)
	require.True(t, ok)
	assert.Equal(t, "CUEI", seg.Identifier)
	assert.Equal(t, uint32(77), seg.SegmentationEventID)
	assert.True(t, seg.SegmentationDurationFlag)
	assert.InDelta(t, 60.0, seg.DurationSeconds(), 0.001)
	assert.Equal(t, uint8(0x08), seg.SegmentationUPIDType)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x2A}, seg.SegmentationUPID)
	assert.Equal(t, uint8(SegTypeProviderPOStart), seg.SegmentationTypeID)

	assert.Equal(t, ClassificationAdStart, section.Classify())
}

func TestSegmentationDeliveryRestrictions(t *testing.T) {
	original := NewTimeSignal(0)
	original.Descriptors = append(original.Descriptors, &SegmentationDescriptor{
		Identifier:              "CUEI",
		SegmentationEventID:     5,
		ProgramSegmentationFlag: true,
		WebDeliveryAllowedFlag:  true,
		ArchiveAllowedFlag:      true,
		DeviceRestrictions:      0x03,
		SegmentationTypeID:      SegTypeProviderAdEnd,
	})

	section, err := Decode(original.Encode())
	require.NoError(t, err)
	require.Len(t, section.Descriptors, 1)

	seg := section.Descriptors[0].(*SegmentationDescriptor)
	assert.False(t, seg.DeliveryNotRestrictedFlag)
	assert.True(t, seg.WebDeliveryAllowedFlag)
	assert.False(t, seg.NoRegionalBlackoutFlag)
	assert.True(t, seg.ArchiveAllowedFlag)
	assert.Equal(t, uint8(0x03), seg.DeviceRestrictions)
	assert.Equal(t, ClassificationAdEnd, section.Classify())
}

func TestDescriptorPrecedenceOverCommand(t *testing.T) {
	// An out-of-network splice_insert carrying a Break End descriptor should
	// classify by the descriptor.
	section := NewAdBreakStart(9, 10.0)
	section.Descriptors = append(section.Descriptors, &SegmentationDescriptor{
		Identifier:                "CUEI",
		SegmentationEventID:       9,
		ProgramSegmentationFlag:   true,
		DeliveryNotRestrictedFlag: true,
		SegmentationTypeID:        SegTypeBreakEnd,
	})

	decoded, err := Decode(section.Encode())
	require.NoError(t, err)
	assert.Equal(t, ClassificationAdEnd, decoded.Classify())
}

func TestDecodeUnknownCommandPreserved(t *testing.T) {
	section := &SpliceInfoSection{
		SpliceCommandType: 0xE0,
		SpliceCommand:     &RawCommand{Type: 0xE0, Data: []byte{0x01, 0x02, 0x03}},
	}

	decoded, err := Decode(section.Encode())
	require.NoError(t, err)

	raw, ok := decoded.SpliceCommand.(*RawCommand)
	require.True(t, ok)
	assert.Equal(t, uint8(0xE0), raw.Type)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, raw.Data)
}

func TestDecodeBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(NewAdBreakStart(3, 20.0).Encode())

	section, err := DecodeBase64(encoded)
	require.NoError(t, err)
	assert.True(t, section.IsAdBreakStart())

	_, err = DecodeBase64("not base64 at all!!!")
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)
}

func TestDecodeHex(t *testing.T) {
	raw := NewTimeSignal(4500).Encode()

	section, err := DecodeHex("0x" + hex.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, uint8(CmdTimeSignal), section.SpliceCommandType)

	_, err = DecodeHex("0xZZ")
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)
}

func TestDecodeString(t *testing.T) {
	raw := NewAdBreakEnd(8).Encode()

	t.Run("base64 input", func(t *testing.T) {
		section, err := DecodeString(base64.StdEncoding.EncodeToString(raw))
		require.NoError(t, err)
		assert.True(t, section.IsAdBreakEnd())
	})

	t.Run("hex input", func(t *testing.T) {
		section, err := DecodeString("0x" + hex.EncodeToString(raw))
		require.NoError(t, err)
		assert.True(t, section.IsAdBreakEnd())
	})

	t.Run("garbage input", func(t *testing.T) {
		_, err := DecodeString("???")
		assert.Error(t, err)
	})
}

func TestSegmentationTypeName(t *testing.T) {
	assert.Equal(t, "Provider Advertisement Start", SegmentationTypeName(SegTypeProviderAdStart))
	assert.Equal(t, "Break End", SegmentationTypeName(SegTypeBreakEnd))
	assert.Equal(t, "Unknown (0xEE)", SegmentationTypeName(0xEE))
}

func TestDescribe(t *testing.T) {
	start := NewAdBreakStart(100, 30.0)
	decoded, err := Decode(start.Encode())
	require.NoError(t, err)

	desc := decoded.Describe()
	assert.Contains(t, desc, "splice_insert")
	assert.Contains(t, desc, "out_of_network")
	assert.Contains(t, desc, "immediate")
	assert.Contains(t, desc, "30.0s")
}

func TestTickConversions(t *testing.T) {
	assert.Equal(t, uint64(2700000), SecondsToTicks(30.0))
	assert.InDelta(t, 30.0, TicksToSeconds(2700000), 0.001)
}
