package h264

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/icza/bitio"
)

// SPSInfo holds the parameters extracted from a Sequence Parameter Set
// that the ingest host cares about: picture dimensions and the
// profile/level triple used for RFC 6381 codec strings.
type SPSInfo struct {
	Width           int
	Height          int
	ProfileIDC      byte
	ConstraintFlags byte
	LevelIDC        byte
}

// CodecString returns the RFC 6381 codec parameter string for this SPS,
// e.g. "avc1.42E01E".
func (s SPSInfo) CodecString() string {
	return fmt.Sprintf("avc1.%02X%02X%02X", s.ProfileIDC, s.ConstraintFlags, s.LevelIDC)
}

var errSPSTooShort = errors.New("h264: SPS data too short")

type spsReader struct {
	r *bitio.Reader
}

func (sr spsReader) bits(n uint8) (uint64, error) {
	return sr.r.ReadBits(n)
}

// ue decodes an unsigned Exp-Golomb value.
func (sr spsReader) ue() (uint64, error) {
	zeros := 0
	for {
		b, err := sr.r.ReadBool()
		if err != nil {
			return 0, err
		}
		if b {
			break
		}
		zeros++
		if zeros > 31 {
			return 0, errSPSTooShort
		}
	}
	if zeros == 0 {
		return 0, nil
	}
	suffix, err := sr.r.ReadBits(uint8(zeros))
	if err != nil {
		return 0, err
	}
	return (1 << zeros) - 1 + suffix, nil
}

// se decodes a signed Exp-Golomb value.
func (sr spsReader) se() (int, error) {
	v, err := sr.ue()
	if err != nil {
		return 0, err
	}
	if v%2 == 0 {
		return -int(v / 2), nil
	}
	return int((v + 1) / 2), nil
}

func (sr spsReader) skipScalingList(size int) error {
	lastScale, nextScale := 8, 8
	for j := 0; j < size; j++ {
		if nextScale != 0 {
			delta, err := sr.se()
			if err != nil {
				return err
			}
			nextScale = (lastScale + delta + 256) % 256
		}
		if nextScale != 0 {
			lastScale = nextScale
		}
	}
	return nil
}

// ParseSPS parses an H.264 SPS NAL unit and extracts the picture
// dimensions and profile/level identifiers. The input is the raw NAL
// data including the NAL header byte, without the start code.
func ParseSPS(nalu []byte) (SPSInfo, error) {
	if len(nalu) < 4 {
		return SPSInfo{}, errSPSTooShort
	}

	rbsp := removeEmulationPrevention(nalu[1:])
	sr := spsReader{r: bitio.NewReader(bytes.NewReader(rbsp))}

	profileIDC, err := sr.bits(8)
	if err != nil {
		return SPSInfo{}, err
	}
	constraintFlags, err := sr.bits(8)
	if err != nil {
		return SPSInfo{}, err
	}
	levelIDC, err := sr.bits(8)
	if err != nil {
		return SPSInfo{}, err
	}
	if _, err := sr.ue(); err != nil { // seq_parameter_set_id
		return SPSInfo{}, err
	}

	chromaFormatIDC := uint64(1)
	separateColourPlane := false

	switch profileIDC {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134:
		chromaFormatIDC, err = sr.ue()
		if err != nil {
			return SPSInfo{}, err
		}
		if chromaFormatIDC == 3 {
			b, err := sr.r.ReadBool()
			if err != nil {
				return SPSInfo{}, err
			}
			separateColourPlane = b
		}
		if _, err := sr.ue(); err != nil { // bit_depth_luma_minus8
			return SPSInfo{}, err
		}
		if _, err := sr.ue(); err != nil { // bit_depth_chroma_minus8
			return SPSInfo{}, err
		}
		if _, err := sr.bits(1); err != nil { // qpprime_y_zero_transform_bypass
			return SPSInfo{}, err
		}
		scalingMatrix, err := sr.bits(1)
		if err != nil {
			return SPSInfo{}, err
		}
		if scalingMatrix == 1 {
			limit := 8
			if chromaFormatIDC == 3 {
				limit = 12
			}
			for i := 0; i < limit; i++ {
				flag, err := sr.bits(1)
				if err != nil {
					return SPSInfo{}, err
				}
				if flag == 1 {
					size := 16
					if i >= 6 {
						size = 64
					}
					if err := sr.skipScalingList(size); err != nil {
						return SPSInfo{}, err
					}
				}
			}
		}
	}

	if _, err := sr.ue(); err != nil { // log2_max_frame_num_minus4
		return SPSInfo{}, err
	}

	picOrderCntType, err := sr.ue()
	if err != nil {
		return SPSInfo{}, err
	}
	switch picOrderCntType {
	case 0:
		if _, err := sr.ue(); err != nil { // log2_max_pic_order_cnt_lsb_minus4
			return SPSInfo{}, err
		}
	case 1:
		if _, err := sr.bits(1); err != nil { // delta_pic_order_always_zero
			return SPSInfo{}, err
		}
		if _, err := sr.se(); err != nil { // offset_for_non_ref_pic
			return SPSInfo{}, err
		}
		if _, err := sr.se(); err != nil { // offset_for_top_to_bottom_field
			return SPSInfo{}, err
		}
		numRefFrames, err := sr.ue()
		if err != nil {
			return SPSInfo{}, err
		}
		for i := uint64(0); i < numRefFrames; i++ {
			if _, err := sr.se(); err != nil {
				return SPSInfo{}, err
			}
		}
	}

	if _, err := sr.ue(); err != nil { // max_num_ref_frames
		return SPSInfo{}, err
	}
	if _, err := sr.bits(1); err != nil { // gaps_in_frame_num_value_allowed
		return SPSInfo{}, err
	}

	picWidthMbs, err := sr.ue()
	if err != nil {
		return SPSInfo{}, err
	}
	picHeightMapUnits, err := sr.ue()
	if err != nil {
		return SPSInfo{}, err
	}
	frameMbsOnly, err := sr.bits(1)
	if err != nil {
		return SPSInfo{}, err
	}
	if frameMbsOnly == 0 {
		if _, err := sr.bits(1); err != nil { // mb_adaptive_frame_field
			return SPSInfo{}, err
		}
	}
	if _, err := sr.bits(1); err != nil { // direct_8x8_inference
		return SPSInfo{}, err
	}

	var cropLeft, cropRight, cropTop, cropBottom uint64
	cropping, err := sr.bits(1)
	if err != nil {
		return SPSInfo{}, err
	}
	if cropping == 1 {
		if cropLeft, err = sr.ue(); err != nil {
			return SPSInfo{}, err
		}
		if cropRight, err = sr.ue(); err != nil {
			return SPSInfo{}, err
		}
		if cropTop, err = sr.ue(); err != nil {
			return SPSInfo{}, err
		}
		if cropBottom, err = sr.ue(); err != nil {
			return SPSInfo{}, err
		}
	}

	chromaArrayType := chromaFormatIDC
	if separateColourPlane {
		chromaArrayType = 0
	}
	var subWidthC, subHeightC uint64
	switch chromaArrayType {
	case 0, 3:
		subWidthC, subHeightC = 1, 1
	case 2:
		subWidthC, subHeightC = 2, 1
	default:
		subWidthC, subHeightC = 2, 2
	}

	cropUnitX := subWidthC
	cropUnitY := subHeightC * (2 - frameMbsOnly)

	width := int((picWidthMbs+1)*16 - cropUnitX*(cropLeft+cropRight))
	height := int((picHeightMapUnits+1)*16*(2-frameMbsOnly) - cropUnitY*(cropTop+cropBottom))

	return SPSInfo{
		Width:           width,
		Height:          height,
		ProfileIDC:      byte(profileIDC),
		ConstraintFlags: byte(constraintFlags),
		LevelIDC:        byte(levelIDC),
	}, nil
}
