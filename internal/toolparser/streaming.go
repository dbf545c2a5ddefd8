package toolparser

import (
	"encoding/json"
	"regexp"
	"strings"
)

// toolPatterns mark the start of a potential tool-call block inside a
// streamed response, checked in order against the content accumulated
// since the end of the last completed tool-call block.
var toolPatterns = []*regexp.Regexp{
	regexp.MustCompile("```json\\s*\\{"),
	regexp.MustCompile(`\{"name"\s*:\s*"`),
	regexp.MustCompile(`\{"function"\s*:\s*"`),
	regexp.MustCompile(`\{"tool"\s*:\s*"`),
	regexp.MustCompile(`<tool_call>\s*\{`),
}

// StreamBuffer accumulates streamed tokens and detects tool-call blocks as
// they complete, so callers can suppress tool-call JSON from a live display
// while still streaming ordinary text tokens through immediately.
type StreamBuffer struct {
	content    strings.Builder
	calls      []Call
	inBlock    bool
	jsonDepth  int
	jsonBuffer strings.Builder
	lastPos    int
}

// NewStreamBuffer returns an empty buffer.
func NewStreamBuffer() *StreamBuffer {
	return &StreamBuffer{}
}

// InToolBlock reports whether the buffer is mid-way through accumulating a
// tool-call block.
func (b *StreamBuffer) InToolBlock() bool { return b.inBlock }

// AddToken feeds one token into the buffer. It returns the text that is
// safe to display immediately (empty while inside a tool-call block) and
// whether the token was tool-related.
func (b *StreamBuffer) AddToken(token string) (display string, toolRelated bool) {
	b.content.WriteString(token)
	full := b.content.String()

	if !b.inBlock {
		searchStart := b.lastPos
		searchContent := full[searchStart:]

		for _, pat := range toolPatterns {
			loc := pat.FindStringIndex(searchContent)
			if loc == nil {
				continue
			}
			b.inBlock = true
			b.jsonBuffer.Reset()
			b.jsonDepth = 0

			matchPos := searchStart + loc[0]
			jsonStart := findBraceFrom(full, matchPos)
			if jsonStart < 0 {
				break
			}
			b.jsonBuffer.WriteString(full[jsonStart:])
			for _, r := range b.jsonBuffer.String() {
				if r == '{' {
					b.jsonDepth++
				} else if r == '}' {
					b.jsonDepth--
				}
			}
			if b.jsonDepth == 0 && strings.TrimSpace(b.jsonBuffer.String()) != "" {
				b.tryParse()
				b.inBlock = false
				b.jsonBuffer.Reset()
				b.lastPos = len(full)
			}
			return "", true
		}
		return token, false
	}

	b.jsonBuffer.WriteString(token)
	for _, r := range token {
		if r == '{' {
			b.jsonDepth++
		} else if r == '}' {
			b.jsonDepth--
			if b.jsonDepth == 0 {
				b.tryParse()
				b.inBlock = false
				b.jsonBuffer.Reset()
				b.lastPos = len(full)
				return "", true
			}
		}
	}
	return "", true
}

func findBraceFrom(content string, from int) int {
	for i := from; i < len(content); i++ {
		if content[i] == '{' {
			return i
		}
	}
	return -1
}

var (
	mdWrapOpen   = regexp.MustCompile("^```json\\s*")
	mdWrapClose  = regexp.MustCompile("\\s*```$")
	xmlWrapOpen  = regexp.MustCompile(`^<tool_call>\s*`)
	xmlWrapClose = regexp.MustCompile(`\s*</tool_call>$`)
)

func (b *StreamBuffer) tryParse() {
	jsonStr := strings.TrimSpace(b.jsonBuffer.String())
	jsonStr = mdWrapOpen.ReplaceAllString(jsonStr, "")
	jsonStr = mdWrapClose.ReplaceAllString(jsonStr, "")
	jsonStr = xmlWrapOpen.ReplaceAllString(jsonStr, "")
	jsonStr = xmlWrapClose.ReplaceAllString(jsonStr, "")

	var data map[string]any
	if json.Unmarshal([]byte(jsonStr), &data) != nil {
		return
	}

	var name string
	var args any
	if v, ok := data["name"]; ok {
		name, _ = v.(string)
		if a, ok := data["arguments"]; ok {
			args = a
		} else if a, ok := data["parameters"]; ok {
			args = a
		}
	} else if v, ok := data["function"].(string); ok {
		name = v
		args = data["arguments"]
	} else if fn, ok := data["function"].(map[string]any); ok {
		name, _ = fn["name"].(string)
		args = fn["arguments"]
	} else if v, ok := data["tool"].(string); ok {
		name = v
		if a, ok := data["input"]; ok {
			args = a
		} else if a, ok := data["arguments"]; ok {
			args = a
		}
	}

	if name == "" {
		return
	}
	b.calls = append(b.calls, Call{Name: name, Arguments: coerceArguments(args)})
}

// GetToolCalls returns every tool call detected so far.
func (b *StreamBuffer) GetToolCalls() []Call {
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// Reset clears the buffer for a new response.
func (b *StreamBuffer) Reset() {
	b.content.Reset()
	b.calls = nil
	b.inBlock = false
	b.jsonDepth = 0
	b.jsonBuffer.Reset()
	b.lastPos = 0
}
