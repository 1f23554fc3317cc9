package document

import (
	"strings"
	"time"
)

// HistoryHeading is the heading of the habit log section.
const HistoryHeading = "History"

const historyHeader = "| Date | Time | Status | Action | Notes |\n|------|------|--------|--------|-------|"

// HistoryRow is one line of a habit log table.
type HistoryRow struct {
	Date   string `json:"date"`
	Time   string `json:"time"`
	Status string `json:"status"`
	Action string `json:"action"`
	Notes  string `json:"notes"`
}

// NewHistoryRow records a status change at t.
func NewHistoryRow(t time.Time, checked bool, action, notes string) HistoryRow {
	status := "To Do"
	if checked {
		status = "Complete"
	}
	return HistoryRow{
		Date:   t.Format("2006-01-02"),
		Time:   t.Format("3:04 PM"),
		Status: status,
		Action: action,
		Notes:  notes,
	}
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

func (r HistoryRow) String() string {
	cells := []string{r.Date, r.Time, r.Status, r.Action, r.Notes}
	for i, c := range cells {
		cells[i] = strings.TrimSpace(cellEscaper.Replace(c))
	}
	return "| " + strings.Join(cells, " | ") + " |"
}

// AppendHistory adds row to the end of the History table, creating the
// table or the section when missing.
func AppendHistory(text string, row HistoryRow) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	start, end := -1, len(lines)
	inFence := false
	for i, line := range lines {
		if fenceRe.MatchString(line) {
			inFence = !inFence
		}
		if inFence {
			continue
		}
		h, ok := strings.CutPrefix(line, "## ")
		if !ok {
			continue
		}
		if start >= 0 {
			end = i
			break
		}
		if headingKey(h) == "history" {
			start = i
		}
	}
	if start < 0 {
		return Normalize(Normalize(text) + "\n## " + HistoryHeading + "\n" + historyHeader + "\n" + row.String())
	}

	last := -1
	for i := start + 1; i < end; i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "|") {
			last = i
		}
	}
	var insert []string
	at := last + 1
	if last < 0 {
		insert = append(strings.Split(historyHeader, "\n"), row.String())
		at = start + 1
	} else {
		insert = []string{row.String()}
	}
	out := make([]string, 0, len(lines)+len(insert))
	out = append(out, lines[:at]...)
	out = append(out, insert...)
	out = append(out, lines[at:]...)
	return Normalize(strings.Join(out, "\n"))
}
