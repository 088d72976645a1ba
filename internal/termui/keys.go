package termui

import (
	"bufio"
	"io"
	"unicode"
	"unicode/utf8"

	"pkt.systems/qult/schema"
)

// ReadKeys decodes terminal input into key events until r fails. out is
// closed on return.
func ReadKeys(r io.Reader, out chan<- schema.Key) {
	defer close(out)
	br := bufio.NewReader(r)
	lastWasCR := false
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		if lastWasCR {
			lastWasCR = false
			if b == '\n' {
				continue
			}
		}
		switch b {
		case 0x1b:
			if !readEscape(br, out) {
				return
			}
		case '\r':
			out <- schema.Key{Kind: schema.KeyEnter}
			lastWasCR = true
		case '\n':
			out <- schema.Key{Kind: schema.KeyEnter}
		case 0x7f, 0x08:
			out <- schema.Key{Kind: schema.KeyBackspace}
		case 0x01:
			out <- schema.Key{Kind: schema.KeyCtrlA}
		case 0x05:
			out <- schema.Key{Kind: schema.KeyCtrlE}
		case 0x15:
			out <- schema.Key{Kind: schema.KeyCtrlU}
		case 0x0b:
			out <- schema.Key{Kind: schema.KeyCtrlK}
		case 0x17:
			out <- schema.Key{Kind: schema.KeyCtrlW}
		case 0x04:
			out <- schema.Key{Kind: schema.KeyCtrlD}
		case 0x03:
			out <- schema.Key{Kind: schema.KeyCtrlC}
		case 0x09:
			out <- schema.Key{Kind: schema.KeyTab}
		case 0x10:
			out <- schema.Key{Kind: schema.KeyUp}
		case 0x0e:
			out <- schema.Key{Kind: schema.KeyDown}
		default:
			if b < utf8.RuneSelf {
				if b < 0x20 {
					continue
				}
				out <- schema.Runes(string(rune(b)))
				continue
			}
			_ = br.UnreadByte()
			rn, _, err := br.ReadRune()
			if err != nil {
				return
			}
			if rn == utf8.RuneError || !unicode.IsPrint(rn) {
				continue
			}
			out <- schema.Runes(string(rn))
		}
	}
}

// readEscape decodes the sequence following ESC. A lone ESC with nothing
// buffered behind it is the Escape key.
func readEscape(br *bufio.Reader, out chan<- schema.Key) bool {
	if br.Buffered() == 0 {
		out <- schema.Key{Kind: schema.KeyEscape}
		return true
	}
	b, err := br.ReadByte()
	if err != nil {
		return false
	}
	switch b {
	case '[':
		return readCSI(br, out)
	case 'O':
		return readSS3(br, out)
	default:
		// Alt chords are not bound: report Escape and replay the byte.
		out <- schema.Key{Kind: schema.KeyEscape}
		_ = br.UnreadByte()
		return true
	}
}

func readCSI(br *bufio.Reader, out chan<- schema.Key) bool {
	seq := []byte{}
	for {
		b, err := br.ReadByte()
		if err != nil {
			return false
		}
		seq = append(seq, b)
		if b == '~' || unicode.IsLetter(rune(b)) {
			break
		}
		if len(seq) > 8 {
			return true
		}
	}
	switch string(seq) {
	case "A":
		out <- schema.Key{Kind: schema.KeyUp}
	case "B":
		out <- schema.Key{Kind: schema.KeyDown}
	case "C":
		out <- schema.Key{Kind: schema.KeyRight}
	case "D":
		out <- schema.Key{Kind: schema.KeyLeft}
	case "H", "1~", "7~":
		out <- schema.Key{Kind: schema.KeyHome}
	case "F", "4~", "8~":
		out <- schema.Key{Kind: schema.KeyEnd}
	case "5~":
		out <- schema.Key{Kind: schema.KeyPageUp}
	case "6~":
		out <- schema.Key{Kind: schema.KeyPageDown}
	case "3~":
		out <- schema.Key{Kind: schema.KeyDelete}
	}
	return true
}

func readSS3(br *bufio.Reader, out chan<- schema.Key) bool {
	b, err := br.ReadByte()
	if err != nil {
		return false
	}
	switch b {
	case 'A':
		out <- schema.Key{Kind: schema.KeyUp}
	case 'B':
		out <- schema.Key{Kind: schema.KeyDown}
	case 'C':
		out <- schema.Key{Kind: schema.KeyRight}
	case 'D':
		out <- schema.Key{Kind: schema.KeyLeft}
	case 'H':
		out <- schema.Key{Kind: schema.KeyHome}
	case 'F':
		out <- schema.Key{Kind: schema.KeyEnd}
	}
	return true
}
