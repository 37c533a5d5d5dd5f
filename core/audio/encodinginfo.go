package audio

const (
	DefaultSampleRate = 8000
	DefaultFormat     = "linear16"
)

// GetDefaultEncodingInfo returns telephone quality 16 bit PCM.
func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: encodingFormat(DefaultFormat)}
}

type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case encodingFormat("mulaw"), encodingFormat("alaw"):
		return 1
	case encodingFormat("linear16"):
		return 2
	}
	return -1
}

// waveFormatTag is the WAVE format code of the encoding, 0 if it has none.
func (e encodingFormat) waveFormatTag() uint16 {
	switch e {
	case EncodingLinear16:
		return 1
	case EncodingALaw:
		return 6
	case EncodingMulaw:
		return 7
	}
	return 0
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)
