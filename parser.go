package surgeguard

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is one reduced feed entry: a source address and the label of the
// time unit its request falls into.
type Record struct {
	Address string
	Label   string
}

const clfTimeLayout = "02/Jan/2006:15:04:05 -0700"

// Parser reduces raw access-log lines to (address, label) records. The
// timestamp is truncated to the bucket interval so every request inside the
// same time unit shares a label.
type Parser struct {
	interval time.Duration
}

func NewParser(interval time.Duration) *Parser {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Parser{interval: interval}
}

// ParseLine handles Common Log Format entries and the plain
// "<address> <unix-seconds>" form.
func (p *Parser) ParseLine(line string) (Record, error) {
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Record{}, fmt.Errorf("malformed log line: %q", line)
	}
	address := fields[0]

	if open := strings.IndexByte(line, '['); open >= 0 {
		rel := strings.IndexByte(line[open:], ']')
		if rel < 0 {
			return Record{}, fmt.Errorf("unterminated timestamp: %q", line)
		}
		ts, err := time.Parse(clfTimeLayout, line[open+1:open+rel])
		if err != nil {
			return Record{}, fmt.Errorf("parse timestamp: %w", err)
		}
		return Record{Address: address, Label: p.label(ts)}, nil
	}

	epoch, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("parse epoch %q: %w", fields[1], err)
	}
	return Record{Address: address, Label: p.label(time.Unix(epoch, 0).UTC())}, nil
}

func (p *Parser) label(ts time.Time) string {
	return ts.Truncate(p.interval).Format(time.RFC3339)
}
