package codec

import (
	"fmt"
	"os"

	"github.com/gopxl/beep/v2/wav"
	"github.com/tejashwikalptaru/tunedeck/internal/domain"
)

// WAVReader parses the header of uncompressed WAV files.
type WAVReader struct{}

// NewWAVReader creates a new header reader.
func NewWAVReader() *WAVReader {
	return &WAVReader{}
}

// ReadHeader returns the duration of the file in seconds.
func (r *WAVReader) ReadHeader(path string) (float64, error) {
	if path == "" {
		return 0, domain.ErrInvalidFilePath
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, domain.ErrFileNotFound
		}
		return 0, fmt.Errorf("open: %w", err)
	}
	defer file.Close()

	streamer, format, err := wav.Decode(file)
	if err != nil {
		return 0, fmt.Errorf("read wav header: %w", err)
	}

	if format.SampleRate <= 0 {
		return 0, fmt.Errorf("read wav header: invalid sample rate %d", format.SampleRate)
	}
	return format.SampleRate.D(streamer.Len()).Seconds(), nil
}
