package hls

// Sample playlist bodies shared across the package's test files.
var (
	TestMasterPlaylist = `#EXTM3U
#EXT-X-VERSION:4
#EXT-X-STREAM-INF:BANDWIDTH=1280000,AVERAGE-BANDWIDTH=1000000,CODECS="avc1.42e00a,mp4a.40.2",RESOLUTION=852x480,FRAME-RATE=29.970
480p.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=2560000,CODECS="avc1.42e00a,mp4a.40.2",RESOLUTION=1280x720,AUDIO="aud1"
720p.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=5000000,CODECS="avc1.42e00a,mp4a.40.2",RESOLUTION=1920x1080
1080p.m3u8
#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="aud1",NAME="English",DEFAULT=YES,URI="audio/en.m3u8"`

	TestVodPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:10.0,
segment0.ts
#EXTINF:10.0,
segment1.ts
#EXT-X-ENDLIST`

	TestLivePlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:6
#EXT-X-MEDIA-SEQUENCE:123456
#EXTINF:6.006,
segment123456.ts
#EXTINF:6.006,
segment123457.ts
#EXTINF:6.006,
segment123458.ts`

	TestPlaylistWithContexts = `#EXTM3U
#EXT-X-VERSION:6
#EXT-X-TARGETDURATION:6
#EXT-X-MEDIA-SEQUENCE:10
#EXT-X-MAP:URI="init.mp4",BYTERANGE="720@0"
#EXT-X-KEY:METHOD=AES-128,URI="https://keys.example.com/k1",IV=0x1234567890ABCDEF1234567890ABCDEF
#EXT-X-PROGRAM-DATE-TIME:2026-08-30T12:00:00.000Z
#EXTINF:6.0,first
seg10.m4s
#EXTINF:6.0,second
seg11.m4s
#EXT-X-KEY:METHOD=NONE
#EXTINF:6.0,third
seg12.m4s
#EXT-X-ENDLIST`

	TestPlaylistWithByteRanges = `#EXTM3U
#EXT-X-VERSION:4
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:10.0,
#EXT-X-BYTERANGE:75232@0
media.ts
#EXTINF:10.0,
#EXT-X-BYTERANGE:82112
media.ts
#EXT-X-ENDLIST`

	TestPlaylistWithDiscontinuities = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:10.0,content
segment0.ts
#EXT-X-DISCONTINUITY
#EXTINF:10.0,ad
ad0.ts
#EXT-X-DISCONTINUITY
#EXTINF:10.0,content
segment1.ts
#EXT-X-ENDLIST`
)
