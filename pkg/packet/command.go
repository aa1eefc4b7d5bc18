package packet

// Command is one parsed host→device line. Unknown types are passed through
// for the caller to drop.
type Command struct {
	Type  string
	JobID string
}

// ParseCommand parses a single flat JSON object into a Command. It is a
// minimal hand-rolled parser so the firmware build stays free of reflection.
// Only the "type" and "jobId" string fields are kept; other scalar fields are
// skipped. Returns false for anything structurally malformed (unterminated
// strings, nested values, trailing garbage); such lines are dropped silently
// by the interpreter, matching the protocol's no-feedback error model.
func ParseCommand(line string) (Command, bool) {
	p := parser{src: line}
	p.skipSpace()
	if !p.eat('{') {
		return Command{}, false
	}
	var cmd Command
	p.skipSpace()
	if p.eat('}') {
		p.skipSpace()
		return cmd, p.done()
	}
	for {
		p.skipSpace()
		key, ok := p.parseString()
		if !ok {
			return Command{}, false
		}
		p.skipSpace()
		if !p.eat(':') {
			return Command{}, false
		}
		p.skipSpace()
		val, isString, ok := p.parseValue()
		if !ok {
			return Command{}, false
		}
		if isString {
			switch key {
			case "type":
				cmd.Type = val
			case "jobId":
				cmd.JobID = val
			}
		}
		p.skipSpace()
		if p.eat(',') {
			continue
		}
		if p.eat('}') {
			p.skipSpace()
			return cmd, p.done()
		}
		return Command{}, false
	}
}

type parser struct {
	src string
	pos int
}

func (p *parser) done() bool { return p.pos == len(p.src) }

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) eat(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

// parseValue consumes one scalar value. Nested objects and arrays are
// rejected; no command carries them.
func (p *parser) parseValue() (val string, isString, ok bool) {
	if p.pos >= len(p.src) {
		return "", false, false
	}
	switch c := p.src[p.pos]; {
	case c == '"':
		s, ok := p.parseString()
		return s, true, ok
	case c == '-' || (c >= '0' && c <= '9'):
		return "", false, p.parseNumber()
	case c == 't':
		return "", false, p.eatLiteral("true")
	case c == 'f':
		return "", false, p.eatLiteral("false")
	case c == 'n':
		return "", false, p.eatLiteral("null")
	default:
		return "", false, false
	}
}

func (p *parser) eatLiteral(lit string) bool {
	if len(p.src)-p.pos < len(lit) || p.src[p.pos:p.pos+len(lit)] != lit {
		return false
	}
	p.pos += len(lit)
	return true
}

func (p *parser) parseNumber() bool {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		break
	}
	return p.pos > start
}

// parseString consumes a quoted string and returns its unescaped value.
// Fails on an unterminated string, which is how a truncated JOB_SELECTED
// payload gets dropped.
func (p *parser) parseString() (string, bool) {
	if !p.eat('"') {
		return "", false
	}
	var out []byte
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		p.pos++
		switch c {
		case '"':
			return string(out), true
		case '\\':
			if p.pos >= len(p.src) {
				return "", false
			}
			esc := p.src[p.pos]
			p.pos++
			switch esc {
			case '"', '\\', '/':
				out = append(out, esc)
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case 'u':
				if len(p.src)-p.pos < 4 {
					return "", false
				}
				r := 0
				for i := 0; i < 4; i++ {
					d := hexDigit(p.src[p.pos+i])
					if d < 0 {
						return "", false
					}
					r = r<<4 | d
				}
				p.pos += 4
				out = append(out, string(rune(r))...)
			default:
				return "", false
			}
		default:
			out = append(out, c)
		}
	}
	return "", false
}

func hexDigit(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}
