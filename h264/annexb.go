package h264

import "errors"

var errNoSPS = errors.New("h264: access unit carries no SPS")

// forEachNAL invokes fn for each NAL unit in the Annex B byte stream au,
// stopping early when fn returns false. Both 3- and 4-byte start codes
// are recognized; the NAL slices passed to fn include the header byte.
func forEachNAL(au []byte, fn func(nal []byte) bool) {
	start := -1
	i := 0
	for i+2 < len(au) {
		if au[i] != 0 || au[i+1] != 0 || au[i+2] != 1 {
			i++
			continue
		}
		if start >= 0 {
			end := i
			if end > start && au[end-1] == 0 {
				end-- // leading zero of a 4-byte start code
			}
			if !fn(au[start:end]) {
				return
			}
		}
		i += 3
		start = i
	}
	if start >= 0 && start < len(au) {
		fn(au[start:])
	}
}

// SPSFromAccessUnit parses the first sequence parameter set found in the
// Annex B access unit au.
func SPSFromAccessUnit(au []byte) (SPSInfo, error) {
	info := SPSInfo{}
	err := errNoSPS
	forEachNAL(au, func(nal []byte) bool {
		if len(nal) == 0 || TypeOf(nal[0]) != NALTypeSPS {
			return true
		}
		info, err = ParseSPS(nal)
		return false
	})
	return info, err
}

// ContainsKeyframe reports whether the Annex B access unit au carries an
// IDR slice.
func ContainsKeyframe(au []byte) bool {
	found := false
	forEachNAL(au, func(nal []byte) bool {
		if len(nal) > 0 && IsKeyframe(TypeOf(nal[0])) {
			found = true
			return false
		}
		return true
	})
	return found
}
