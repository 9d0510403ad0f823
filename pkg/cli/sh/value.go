package sh

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robotalks/sbus.go/pkg/sbus"
)

// ParseValue parses channel values from args. An arg is either a value
// for the next channel, or CH=VALUE for a specific channel (0 based).
// Channels not mentioned stay centered.
func ParseValue(args []string) (sbus.Value, error) {
	v := sbus.CenteredValue()
	next := 0
	for _, arg := range args {
		ch := next
		valStr := arg
		if pos := strings.IndexByte(arg, '='); pos >= 0 {
			n, err := strconv.Atoi(arg[:pos])
			if err != nil {
				return v, fmt.Errorf("invalid channel %q", arg[:pos])
			}
			ch, valStr = n, arg[pos+1:]
		}
		if ch < 0 || ch >= sbus.NumChannels {
			return v, fmt.Errorf("channel %d out of range", ch)
		}
		val, err := strconv.ParseUint(valStr, 0, 16)
		if err != nil || uint16(val) > sbus.ChannelMask {
			return v, fmt.Errorf("invalid value %q", valStr)
		}
		v.Channels[ch] = uint16(val)
		next = ch + 1
	}
	return v, nil
}
