package lhotse

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// STMLines renders supervisions as NIST STM rows sorted by recording, channel
// and start time. A supervision spanning several channels yields one row per
// channel.
func STMLines(sups []Supervision) ([]string, error) {
	type row struct {
		recording string
		channel   int
		start     float64
		line      string
	}
	rows := make([]row, 0, len(sups))
	for _, sup := range sups {
		recording := sup.RecordingID
		if recording == "" {
			recording = sup.ID
		}
		speaker := sup.Speaker
		if speaker == "" {
			speaker = "unknown"
		}
		channels, err := sup.Channels()
		if err != nil {
			return nil, err
		}
		text := sanitizeText(sup.Text)
		for _, ch := range channels {
			rows = append(rows, row{
				recording: recording,
				channel:   ch,
				start:     sup.Start,
				line:      fmt.Sprintf("%s %d %s %.3f %.3f %s", recording, ch, speaker, sup.Start, sup.End(), text),
			})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].recording != rows[j].recording {
			return rows[i].recording < rows[j].recording
		}
		if rows[i].channel != rows[j].channel {
			return rows[i].channel < rows[j].channel
		}
		return rows[i].start < rows[j].start
	})
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = r.line
	}
	return lines, nil
}

// WriteSTM writes STM rows, newline terminated.
func WriteSTM(w io.Writer, sups []Supervision) (int, error) {
	lines, err := STMLines(sups)
	if err != nil {
		return 0, err
	}
	if _, err := io.WriteString(w, strings.Join(lines, "\n")+"\n"); err != nil {
		return 0, err
	}
	return len(lines), nil
}

func sanitizeText(text string) string {
	if text == "" {
		return ""
	}
	return norm.NFC.String(strings.Join(strings.Fields(text), " "))
}
