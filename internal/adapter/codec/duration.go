package codec

import (
	"errors"
	"fmt"
	"io"
	"os"

	goflac "github.com/go-flac/go-flac"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"go.senan.xyz/taglib"
)

var errNoDuration = errors.New("duration not available")

// decodeFunc is the shape shared by the beep decoders.
type decodeFunc func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

// probeDuration returns the stream length in seconds. FLAC, MP3 and Vorbis are
// measured natively; MP4/AAC, Opus and anything a native decoder rejects go
// through TagLib's audio properties.
func probeDuration(path, ext string) (float64, error) {
	switch ext {
	case domain.ExtFLAC:
		if seconds, err := flacStreamInfoDuration(path); err == nil {
			return seconds, nil
		}
		return decodeDuration(path, func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
			return flac.Decode(rc)
		})
	case domain.ExtMP3:
		return decodeDuration(path, mp3.Decode)
	case domain.ExtOGG, domain.ExtOGV, domain.ExtOGM:
		// Opus streams also use these containers
		if seconds, err := decodeDuration(path, vorbis.Decode); err == nil {
			return seconds, nil
		}
	}
	return taglibDuration(path)
}

// taglibDuration reads the length TagLib computes from the container headers.
func taglibDuration(path string) (float64, error) {
	props, err := taglib.ReadProperties(path)
	if err != nil {
		return 0, fmt.Errorf("read taglib properties: %w", err)
	}
	if props.Length <= 0 {
		return 0, errNoDuration
	}
	return props.Length.Seconds(), nil
}

// decodeDuration opens the file with a beep decoder and converts its length.
func decodeDuration(path string, decode decodeFunc) (float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}

	// the streamer owns the file from here on
	streamer, format, err := decode(file)
	if err != nil {
		file.Close()
		return 0, fmt.Errorf("decode: %w", err)
	}
	defer streamer.Close()

	if format.SampleRate <= 0 || streamer.Len() <= 0 {
		return 0, errNoDuration
	}
	return format.SampleRate.D(streamer.Len()).Seconds(), nil
}

// flacStreamInfoDuration reads the total sample count from the STREAMINFO block.
func flacStreamInfoDuration(path string) (float64, error) {
	file, err := goflac.ParseFile(path)
	if err != nil {
		return 0, err
	}

	for _, meta := range file.Meta {
		if meta.Type != goflac.StreamInfo || len(meta.Data) < 18 {
			continue
		}
		data := meta.Data

		// 20 bits of sample rate starting at byte 10
		sampleRate := int(data[10])<<12 | int(data[11])<<4 | int(data[12])>>4
		// 36 bits of total samples: low nibble of byte 13 plus bytes 14-17
		totalSamples := int64(data[13]&0x0F)<<32 | int64(data[14])<<24 | int64(data[15])<<16 |
			int64(data[16])<<8 | int64(data[17])

		if sampleRate == 0 || totalSamples == 0 {
			return 0, errNoDuration
		}
		return float64(totalSamples) / float64(sampleRate), nil
	}

	return 0, errNoDuration
}
