package wydecoder

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"
)

// Codec identifies the video codec of an MP4 track.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecHEVC    Codec = "hevc"
	CodecAV1     Codec = "av1"
	CodecVP9     Codec = "vp9"
	CodecUnknown Codec = "unknown"
)

// MediaInfo describes the first video track of an MP4 file.
type MediaInfo struct {
	Codec       Codec
	Width       int
	Height      int
	Timescale   uint32
	Duration    time.Duration
	SampleCount int
	Fragmented  bool
}

func (m MediaInfo) String() string {
	return fmt.Sprintf("%s %dx%d, %d samples, %v (timescale %d, fragmented: %t)",
		m.Codec, m.Width, m.Height, m.SampleCount, m.Duration, m.Timescale, m.Fragmented)
}

// ProbeFile reads the container metadata of an MP4 file without decoding
// any sample.
func ProbeFile(path string) (MediaInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return MediaInfo{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return ProbeReader(f)
}

// ProbeReader is like [ProbeFile], but reads from an io.ReadSeeker.
func ProbeReader(reader io.ReadSeeker) (MediaInfo, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return MediaInfo{}, fmt.Errorf("decode mp4: %w", err)
	}

	if mp4File.IsFragmented() {
		if mp4File.Init == nil || mp4File.Init.Moov == nil {
			return MediaInfo{}, fmt.Errorf("no init segment found")
		}
		trak := findVideoTrack(mp4File.Init.Moov.Traks)
		if trak == nil {
			return MediaInfo{}, ErrNoVideo
		}
		info := describeTrack(trak)
		info.Fragmented = true
		if err := countFragmentedSamples(mp4File, trak, &info); err != nil {
			return info, err
		}
		return info, nil
	}

	if mp4File.Moov == nil {
		return MediaInfo{}, fmt.Errorf("no moov box found")
	}
	trak := findVideoTrack(mp4File.Moov.Traks)
	if trak == nil {
		return MediaInfo{}, ErrNoVideo
	}
	info := describeTrack(trak)
	if stbl := trak.Mdia.Minf.Stbl; stbl != nil && stbl.Stsz != nil {
		info.SampleCount = int(stbl.Stsz.SampleNumber)
	}
	if info.Timescale > 0 && trak.Mdia.Mdhd != nil {
		info.Duration = ticksToDuration(trak.Mdia.Mdhd.Duration, info.Timescale)
	}
	return info, nil
}

func findVideoTrack(traks []*mp4.TrakBox) *mp4.TrakBox {
	for _, trak := range traks {
		if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Hdlr.HandlerType != "vide" {
			continue
		}
		if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
			continue
		}
		return trak
	}
	return nil
}

func describeTrack(trak *mp4.TrakBox) MediaInfo {
	info := MediaInfo{Codec: CodecUnknown}
	if trak.Mdia.Mdhd != nil {
		info.Timescale = trak.Mdia.Mdhd.Timescale
	}
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		codec := codecFromSampleEntry(child.Type())
		if codec == CodecUnknown {
			continue
		}
		info.Codec = codec
		if entry, ok := child.(*mp4.VisualSampleEntryBox); ok {
			info.Width = int(entry.Width)
			info.Height = int(entry.Height)
		}
		return info
	}
	return info
}

func codecFromSampleEntry(boxType string) Codec {
	switch boxType {
	case "avc1", "avc3":
		return CodecH264
	case "hvc1", "hev1":
		return CodecHEVC
	case "av01":
		return CodecAV1
	case "vp09":
		return CodecVP9
	default:
		return CodecUnknown
	}
}

func countFragmentedSamples(mp4File *mp4.File, trak *mp4.TrakBox, info *MediaInfo) error {
	trackID := trak.Tkhd.TrackID
	var trex *mp4.TrexBox
	if mvex := mp4File.Init.Moov.Mvex; mvex != nil {
		for _, t := range mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	var total uint64
	for _, seg := range mp4File.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			samples, err := frag.GetFullSamples(trex)
			if err != nil {
				return fmt.Errorf("get samples: %w", err)
			}
			for _, sample := range samples {
				total += uint64(sample.Dur)
			}
			info.SampleCount += len(samples)
		}
	}
	if info.Timescale > 0 {
		info.Duration = ticksToDuration(total, info.Timescale)
	}
	return nil
}

func ticksToDuration(ticks uint64, timescale uint32) time.Duration {
	return time.Duration(math.Round(float64(ticks) / float64(timescale) * float64(time.Second)))
}
