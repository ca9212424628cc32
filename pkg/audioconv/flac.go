package audioconv

import (
	"io"

	"github.com/faiface/beep/flac"
)

func decodeFLAC(r io.ReadSeeker) ([]float32, error) {
	s, format, err := flac.Decode(r)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	var (
		x   []float32
		buf = make([][2]float64, 4096)
	)
	// beep hands out stereo frames even for mono sources
	for {
		n, ok := s.Stream(buf)
		for _, fr := range buf[:n] {
			x = append(x, float32((fr[0]+fr[1])/2))
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return resampleLinear(x, int(format.SampleRate), SampleRate), nil
}
