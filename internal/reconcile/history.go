package reconcile

import (
	"regexp"
	"strings"

	"github.com/starford/gtdspace/internal/blocks"
)

// HistoryHeading is the level-2 heading that opens a protected log section.
const HistoryHeading = "History"

type sectionState int

const (
	stateNormal sectionState = iota
	stateHistory
)

// historyTracker follows the blocks of a document. A level-2 "History"
// heading enters the protected state; any other level-2 heading leaves it.
type historyTracker struct {
	state sectionState
}

func (h *historyTracker) next(b blocks.Block) sectionState {
	if hd, ok := b.(blocks.Heading); ok && hd.Level == 2 {
		if strings.TrimSpace(hd.Text) == HistoryHeading {
			h.state = stateHistory
		} else {
			h.state = stateNormal
		}
	}
	return h.state
}

var (
	h2Re    = regexp.MustCompile(`^##[ \t]+(.+?)[ \t\r]*$`)
	fenceRe = regexp.MustCompile("^[ \t]*(```|~~~)")
)

// historySpans returns the byte ranges of History sections in text.
// Headings inside code fences are ignored.
func historySpans(text string) [][2]int {
	var spans [][2]int
	open := -1
	inFence := false
	for pos := 0; pos < len(text); {
		end := strings.IndexByte(text[pos:], '\n')
		next := len(text)
		if end >= 0 {
			next = pos + end + 1
		}
		line := strings.TrimRight(text[pos:next], "\n")
		if fenceRe.MatchString(line) {
			inFence = !inFence
		}
		if m := h2Re.FindStringSubmatch(line); m != nil && !inFence {
			if open >= 0 {
				spans = append(spans, [2]int{open, pos})
				open = -1
			}
			if m[1] == HistoryHeading {
				open = pos
			}
		}
		pos = next
	}
	if open >= 0 {
		spans = append(spans, [2]int{open, len(text)})
	}
	return spans
}

func inSpans(pos int, spans [][2]int) bool {
	for _, s := range spans {
		if pos >= s[0] && pos < s[1] {
			return true
		}
	}
	return false
}
