package stream

import (
	"github.com/arterberry/metaview-core/stream/hls"
)

// VariantSelector picks which variant of a master playlist to follow. The
// session consults it once per load; changing variants afterwards means
// loading the stream again.
type VariantSelector interface {
	Name() string
	Select(variants []hls.Variant) (hls.Variant, bool)
}

// FirstVariant selects the first variant in source order, the playlist
// author's preferred ordering. This is the default policy.
type FirstVariant struct{}

func (FirstVariant) Name() string { return "first" }

func (FirstVariant) Select(variants []hls.Variant) (hls.Variant, bool) {
	if len(variants) == 0 {
		return hls.Variant{}, false
	}
	return variants[0], true
}

// MaxBandwidthVariant selects the variant with the highest declared
// bandwidth.
type MaxBandwidthVariant struct{}

func (MaxBandwidthVariant) Name() string { return "max_bandwidth" }

func (MaxBandwidthVariant) Select(variants []hls.Variant) (hls.Variant, bool) {
	if len(variants) == 0 {
		return hls.Variant{}, false
	}
	best := variants[0]
	for _, variant := range variants[1:] {
		if variant.Bandwidth > best.Bandwidth {
			best = variant
		}
	}
	return best, true
}

// SelectorForPolicy maps a configured policy name to a selector, defaulting
// to FirstVariant for unknown names.
func SelectorForPolicy(policy string) VariantSelector {
	switch policy {
	case "max_bandwidth":
		return MaxBandwidthVariant{}
	default:
		return FirstVariant{}
	}
}
