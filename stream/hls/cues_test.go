package hls

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arterberry/metaview-core/scte35"
)

func TestExtractCue(t *testing.T) {
	payload := scte35.NewAdBreakStart(7, 30.0).Encode()
	b64 := base64.StdEncoding.EncodeToString(payload)
	hexStr := hex.EncodeToString(payload)

	t.Run("daterange scte35-out hex", func(t *testing.T) {
		line := `#EXT-X-DATERANGE:ID="break-1",START-DATE="2026-08-30T12:00:00Z",SCTE35-OUT=0x` + hexStr
		cue, ok := ExtractCue(line)
		require.True(t, ok)
		assert.Equal(t, payload, cue.Payload)
		assert.Equal(t, CueEncodingHex, cue.Encoding)
		assert.Equal(t, CueHintOut, cue.Hint)
		assert.Equal(t, "#EXT-X-DATERANGE", cue.Tag)
	})

	t.Run("daterange scte35-in hex without prefix", func(t *testing.T) {
		line := `#EXT-X-DATERANGE:ID="break-1-end",SCTE35-IN=` + hexStr
		cue, ok := ExtractCue(line)
		require.True(t, ok)
		assert.Equal(t, CueHintIn, cue.Hint)
	})

	t.Run("cue-out base64 after colon", func(t *testing.T) {
		cue, ok := ExtractCue("#EXT-X-CUE-OUT:" + b64)
		require.True(t, ok)
		assert.Equal(t, payload, cue.Payload)
		assert.Equal(t, CueEncodingBase64, cue.Encoding)
		assert.Equal(t, CueHintOut, cue.Hint)
	})

	t.Run("oatcls base64", func(t *testing.T) {
		cue, ok := ExtractCue("#EXT-OATCLS-SCTE35:" + b64)
		require.True(t, ok)
		assert.Equal(t, payload, cue.Payload)
	})

	t.Run("scte35 attribute on cue tag", func(t *testing.T) {
		cue, ok := ExtractCue(`#EXT-X-CUE-OUT:DURATION=30,SCTE35="` + b64 + `"`)
		require.True(t, ok)
		assert.Equal(t, payload, cue.Payload)
		assert.Equal(t, CueHintOut, cue.Hint)
	})

	t.Run("scte35 attribute on arbitrary tag", func(t *testing.T) {
		cue, ok := ExtractCue(`#EXT-X-CUSTOM-MARKER:SCTE35="` + b64 + `"`)
		require.True(t, ok)
		assert.Equal(t, payload, cue.Payload)
	})

	t.Run("padded base64 after colon", func(t *testing.T) {
		// 34 bytes encode to a base64 value ending in "==": the padding must
		// not push the value down the attribute-parsing path.
		padded := make([]byte, 34)
		padded[0] = scte35.TableID
		encoded := base64.StdEncoding.EncodeToString(padded)
		require.True(t, strings.HasSuffix(encoded, "=="))

		cue, ok := ExtractCue("#EXT-X-CUE-OUT:" + encoded)
		require.True(t, ok)
		assert.Equal(t, padded, cue.Payload)

		cue, ok = ExtractCue("#EXT-X-CUE:" + encoded)
		require.True(t, ok)
		assert.Equal(t, CueHintNone, cue.Hint)
	})

	t.Run("extracted payload decodes", func(t *testing.T) {
		cue, ok := ExtractCue("#EXT-X-CUE-OUT:" + b64)
		require.True(t, ok)

		section, err := scte35.Decode(cue.Payload)
		require.NoError(t, err)
		assert.True(t, section.IsAdBreakStart())
	})

	t.Run("no cue present", func(t *testing.T) {
		for _, line := range []string{
			"#EXTINF:10.0,",
			"#EXT-X-CUE-OUT:30",              // duration only, not a payload
			"#EXT-X-CUE-IN",                  // bare cue-in has no payload
			"#EXT-X-DATERANGE:ID=\"x\"",      // no scte attributes
			"#EXT-X-DATERANGE:SCTE35-OUT=zz", // malformed hex
			"segment0.ts",
			"# comment",
		} {
			_, ok := ExtractCue(line)
			assert.False(t, ok, "line %q should not yield a cue", line)
		}
	})
}
