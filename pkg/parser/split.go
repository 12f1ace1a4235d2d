package parser

import (
	"bytes"
)

// Split is a bufio.SplitFunc that yields one metadata block per call.
// Blocks are separated by one or more blank lines; "\r\n" line endings are
// accepted, so both "\n\n" and "\r\n\r\n" boundaries work.
func Split(data []byte, atEOF bool) (advance int, token []byte, err error) {
	// Skip blank lines in front of the block
	start := 0
	for start < len(data) {
		i := bytes.IndexByte(data[start:], '\n')
		if i < 0 {
			break
		}
		if len(bytes.TrimSpace(data[start:start+i])) != 0 {
			break
		}
		start += i + 1
	}

	pos := start
	for {
		i := bytes.IndexByte(data[pos:], '\n')
		if i < 0 {
			break
		}
		if len(bytes.TrimSpace(data[pos:pos+i])) == 0 {
			return pos + i + 1, data[start:pos], nil
		}
		pos += i + 1
	}

	if atEOF {
		if len(bytes.TrimSpace(data[start:])) > 0 {
			return len(data), data[start:], nil
		}
		return len(data), nil, nil
	}

	// Need more data; drop the blank prefix we already consumed
	return start, nil, nil
}
