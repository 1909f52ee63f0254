package ffmpeg

import (
	"strconv"
	"strings"
	"time"
)

type progressParser struct {
	total   time.Duration
	current Progress
}

func newProgressParser(total time.Duration) *progressParser {
	return &progressParser{total: total}
}

// feed consumes one line of -progress output. It returns a snapshot at the
// end of each block, which ffmpeg marks with a progress= key.
func (p *progressParser) feed(line string) (Progress, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return Progress{}, false
	}
	value = strings.TrimSpace(value)
	switch key {
	case "out_time_us", "out_time_ms":
		// both keys carry microseconds
		if micros, err := strconv.ParseInt(value, 10, 64); err == nil && micros >= 0 {
			p.current.OutTime = time.Duration(micros) * time.Microsecond
		}
	case "speed":
		p.current.Speed = value
	case "progress":
		p.current.Done = value == "end"
		p.current.Percent = p.percent()
		return p.current, true
	}
	return Progress{}, false
}

func (p *progressParser) percent() float64 {
	if p.current.Done {
		return 100
	}
	if p.total <= 0 {
		return -1
	}
	pct := float64(p.current.OutTime) / float64(p.total) * 100
	return min(max(pct, 0), 99)
}
