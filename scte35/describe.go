package scte35

import (
	"fmt"
	"strings"
)

// Segmentation type ids that matter for ad break tracking.
const (
	SegTypeNotIndicated           = 0x00
	SegTypeContentIdentification  = 0x01
	SegTypeProgramStart           = 0x10
	SegTypeProgramEnd             = 0x11
	SegTypeChapterStart           = 0x20
	SegTypeChapterEnd             = 0x21
	SegTypeBreakStart             = 0x22
	SegTypeBreakEnd               = 0x23
	SegTypeProviderAdStart        = 0x30
	SegTypeProviderAdEnd          = 0x31
	SegTypeDistributorAdStart     = 0x32
	SegTypeDistributorAdEnd       = 0x33
	SegTypeProviderPOStart        = 0x34
	SegTypeProviderPOEnd          = 0x35
	SegTypeDistributorPOStart     = 0x36
	SegTypeDistributorPOEnd       = 0x37
	SegTypeProviderOverlayPOStart = 0x38
	SegTypeProviderOverlayPOEnd   = 0x39
	SegTypeUnscheduledEventStart  = 0x40
	SegTypeUnscheduledEventEnd    = 0x41
	SegTypeNetworkStart           = 0x50
	SegTypeNetworkEnd             = 0x51
)

var segmentationTypeNames = map[uint8]string{
	SegTypeNotIndicated:           "Not Indicated",
	SegTypeContentIdentification:  "Content Identification",
	SegTypeProgramStart:           "Program Start",
	SegTypeProgramEnd:             "Program End",
	0x12:                          "Program Early Termination",
	0x13:                          "Program Breakaway",
	0x14:                          "Program Resumption",
	0x17:                          "Program Overlap Start",
	SegTypeChapterStart:           "Chapter Start",
	SegTypeChapterEnd:             "Chapter End",
	SegTypeBreakStart:             "Break Start",
	SegTypeBreakEnd:               "Break End",
	SegTypeProviderAdStart:        "Provider Advertisement Start",
	SegTypeProviderAdEnd:          "Provider Advertisement End",
	SegTypeDistributorAdStart:     "Distributor Advertisement Start",
	SegTypeDistributorAdEnd:       "Distributor Advertisement End",
	SegTypeProviderPOStart:        "Provider Placement Opportunity Start",
	SegTypeProviderPOEnd:          "Provider Placement Opportunity End",
	SegTypeDistributorPOStart:     "Distributor Placement Opportunity Start",
	SegTypeDistributorPOEnd:       "Distributor Placement Opportunity End",
	SegTypeProviderOverlayPOStart: "Provider Overlay Placement Opportunity Start",
	SegTypeProviderOverlayPOEnd:   "Provider Overlay Placement Opportunity End",
	SegTypeUnscheduledEventStart:  "Unscheduled Event Start",
	SegTypeUnscheduledEventEnd:    "Unscheduled Event End",
	SegTypeNetworkStart:           "Network Start",
	SegTypeNetworkEnd:             "Network End",
}

// SegmentationTypeName returns the human-readable name of a segmentation
// type id, or a hex placeholder for ids outside the known table.
func SegmentationTypeName(typeID uint8) string {
	if name, ok := segmentationTypeNames[typeID]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (0x%02X)", typeID)
}

// Classification is the ad break interpretation of a splice section.
type Classification int

const (
	ClassificationNeutral Classification = iota
	ClassificationAdStart
	ClassificationAdEnd
)

func (c Classification) String() string {
	switch c {
	case ClassificationAdStart:
		return "ad_start"
	case ClassificationAdEnd:
		return "ad_end"
	default:
		return "neutral"
	}
}

var adStartTypes = map[uint8]bool{
	SegTypeBreakStart:             true,
	SegTypeProviderAdStart:        true,
	SegTypeDistributorAdStart:     true,
	SegTypeProviderPOStart:        true,
	SegTypeDistributorPOStart:     true,
	SegTypeProviderOverlayPOStart: true,
}

var adEndTypes = map[uint8]bool{
	SegTypeBreakEnd:             true,
	SegTypeProviderAdEnd:        true,
	SegTypeDistributorAdEnd:     true,
	SegTypeProviderPOEnd:        true,
	SegTypeDistributorPOEnd:     true,
	SegTypeProviderOverlayPOEnd: true,
}

// Classify interprets the section as an ad break boundary. Segmentation
// descriptors take precedence over the splice command: a time_signal carrying
// a Provider Advertisement Start classifies as an ad start even though the
// command itself is neutral.
func (s *SpliceInfoSection) Classify() Classification {
	for _, desc := range s.Descriptors {
		seg, ok := desc.(*SegmentationDescriptor)
		if !ok || seg.SegmentationEventCancelInd {
			continue
		}
		if adStartTypes[seg.SegmentationTypeID] {
			return ClassificationAdStart
		}
		if adEndTypes[seg.SegmentationTypeID] {
			return ClassificationAdEnd
		}
	}

	if insert, ok := s.SpliceCommand.(*SpliceInsert); ok && !insert.SpliceEventCancelInd {
		if insert.OutOfNetworkInd {
			return ClassificationAdStart
		}
		return ClassificationAdEnd
	}

	return ClassificationNeutral
}

// IsAdBreakStart reports whether the section signals the start of a break.
func (s *SpliceInfoSection) IsAdBreakStart() bool {
	return s.Classify() == ClassificationAdStart
}

// IsAdBreakEnd reports whether the section signals the end of a break.
func (s *SpliceInfoSection) IsAdBreakEnd() bool {
	return s.Classify() == ClassificationAdEnd
}

// EventID returns the splice or segmentation event id, preferring the
// command's.
func (s *SpliceInfoSection) EventID() (uint32, bool) {
	if insert, ok := s.SpliceCommand.(*SpliceInsert); ok {
		return insert.SpliceEventID, true
	}
	for _, desc := range s.Descriptors {
		if seg, ok := desc.(*SegmentationDescriptor); ok {
			return seg.SegmentationEventID, true
		}
	}
	return 0, false
}

// BreakDurationSeconds returns the declared break length in seconds, from the
// splice_insert break_duration or a segmentation duration, whichever exists.
func (s *SpliceInfoSection) BreakDurationSeconds() (float64, bool) {
	if insert, ok := s.SpliceCommand.(*SpliceInsert); ok && insert.BreakDuration != nil {
		return insert.BreakDuration.Seconds(), true
	}
	for _, desc := range s.Descriptors {
		if seg, ok := desc.(*SegmentationDescriptor); ok && seg.SegmentationDurationFlag {
			return seg.DurationSeconds(), true
		}
	}
	return 0, false
}

// SplicePTS returns the splice point PTS in 90 kHz ticks, if the command
// specifies one.
func (s *SpliceInfoSection) SplicePTS() (uint64, bool) {
	var st *SpliceTime
	switch cmd := s.SpliceCommand.(type) {
	case *SpliceInsert:
		st = cmd.SpliceTime
	case *TimeSignal:
		st = cmd.SpliceTime
	}
	if st == nil || !st.TimeSpecifiedFlag {
		return 0, false
	}
	return st.PTSTime, true
}

// Describe renders a one-line human-readable summary of the section.
func (s *SpliceInfoSection) Describe() string {
	var b strings.Builder

	switch cmd := s.SpliceCommand.(type) {
	case *SpliceInsert:
		b.WriteString(fmt.Sprintf("splice_insert event=%d", cmd.SpliceEventID))
		if cmd.SpliceEventCancelInd {
			b.WriteString(" cancelled")
			break
		}
		if cmd.OutOfNetworkInd {
			b.WriteString(" out_of_network")
		} else {
			b.WriteString(" return_to_network")
		}
		if cmd.SpliceImmediateFlag {
			b.WriteString(" immediate")
		} else if pts, ok := s.SplicePTS(); ok {
			b.WriteString(fmt.Sprintf(" at pts %d", pts))
		}
		if cmd.BreakDuration != nil {
			b.WriteString(fmt.Sprintf(" duration=%.1fs", cmd.BreakDuration.Seconds()))
			if cmd.BreakDuration.AutoReturn {
				b.WriteString(" auto_return")
			}
		}
	case *TimeSignal:
		b.WriteString("time_signal")
		if pts, ok := s.SplicePTS(); ok {
			b.WriteString(fmt.Sprintf(" at pts %d", pts))
		} else {
			b.WriteString(" immediate")
		}
	case *SpliceNull:
		b.WriteString("splice_null")
	case *RawCommand:
		b.WriteString(fmt.Sprintf("command 0x%02X (%d bytes)", cmd.Type, len(cmd.Data)))
	default:
		b.WriteString(fmt.Sprintf("command 0x%02X", s.SpliceCommandType))
	}

	for _, desc := range s.Descriptors {
		seg, ok := desc.(*SegmentationDescriptor)
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf(", segmentation %q", SegmentationTypeName(seg.SegmentationTypeID)))
		if seg.SegmentationDurationFlag {
			b.WriteString(fmt.Sprintf(" duration=%.1fs", seg.DurationSeconds()))
		}
	}

	if s.PTSAdjustment != 0 {
		b.WriteString(fmt.Sprintf(", pts_adjustment=%d", s.PTSAdjustment))
	}

	return b.String()
}
