package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/strata-base/strata-go/pkg/log"
)

// Stats holds aggregate statistics about a capture file.
type Stats struct {
	TotalEvents       int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Sessions          map[string]*SessionStats
	TopicFrames       map[string]int
	DroppedFrames     int
	SupersededPushes  int
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// SessionStats holds statistics for a single client session.
type SessionStats struct {
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int
	ClientID   string
	Reconnects int
}

// RunStats analyzes the capture file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Sessions:          make(map[string]*SessionStats),
		TopicFrames:       make(map[string]int),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		sess, ok := stats.Sessions[event.ConnectionID]
		if !ok {
			sess = &SessionStats{
				FirstSeen: event.Timestamp,
				LastSeen:  event.Timestamp,
			}
			stats.Sessions[event.ConnectionID] = sess
		}
		sess.Events++
		if event.Timestamp.After(sess.LastSeen) {
			sess.LastSeen = event.Timestamp
		}
		if event.ClientID != "" {
			sess.ClientID = event.ClientID
		}

		if event.Frame != nil {
			if event.Frame.Dropped {
				stats.DroppedFrames++
			} else if !event.Frame.Handshake && event.Topic != "" {
				stats.TopicFrames[event.Topic]++
			}
		}
		if event.StateChange != nil && event.StateChange.NewState == "RECONNECTING" {
			sess.Reconnects++
		}
		if event.Sync != nil && event.Sync.Superseded {
			stats.SupersededPushes++
		}
		if event.Error != nil {
			stats.Errors++
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Strata Event Capture Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryFrame, log.CategoryState, log.CategorySync, log.CategoryRequest, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.TopicFrames) > 0 {
		type topicCount struct {
			topic string
			count int
		}
		topics := make([]topicCount, 0, len(stats.TopicFrames))
		for topic, count := range stats.TopicFrames {
			topics = append(topics, topicCount{topic, count})
		}
		sort.Slice(topics, func(i, j int) bool {
			if topics[i].count != topics[j].count {
				return topics[i].count > topics[j].count
			}
			return topics[i].topic < topics[j].topic
		})

		fmt.Fprintln(w, "Frames by Topic:")
		for _, tc := range topics {
			fmt.Fprintf(w, "  %-24s %d\n", tc.topic, tc.count)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		type sessInfo struct {
			id    string
			stats *SessionStats
		}
		sessions := make([]sessInfo, 0, len(stats.Sessions))
		for id, ss := range stats.Sessions {
			sessions = append(sessions, sessInfo{id, ss})
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, s := range sessions {
			duration := s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenConnID(s.id), s.stats.Events, duration)
			if s.stats.ClientID != "" {
				fmt.Fprintf(w, "           Client: %s\n", s.stats.ClientID)
			}
			if s.stats.Reconnects > 0 {
				fmt.Fprintf(w, "           Reconnects: %d\n", s.stats.Reconnects)
			}
		}
	}

	if stats.DroppedFrames > 0 || stats.SupersededPushes > 0 {
		fmt.Fprintln(w)
		if stats.DroppedFrames > 0 {
			fmt.Fprintf(w, "Dropped Frames: %d\n", stats.DroppedFrames)
		}
		if stats.SupersededPushes > 0 {
			fmt.Fprintf(w, "Superseded Pushes: %d\n", stats.SupersededPushes)
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
