package linklog

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/herlein/gocrazy/pkg/crazyradio"
	"github.com/herlein/gocrazy/pkg/scanner"
)

// EventKind tells whether a link appeared or went away.
type EventKind string

const (
	EventFound EventKind = "found"
	EventLost  EventKind = "lost"
)

// Event is one recorded link transition.
type Event struct {
	ID         int64
	At         time.Time
	Kind       EventKind
	Link       scanner.Link
	Detections int
}

// LinkSummary aggregates the history of one link.
type LinkSummary struct {
	Link      scanner.Link `json:"link"`
	FirstSeen time.Time    `json:"first_seen"`
	LastSeen  time.Time    `json:"last_seen"`
	Found     int          `json:"found"`
	Lost      int          `json:"lost"`
}

// Store records link events.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record stores a found or lost transition. Found events are stamped with
// the link's first sighting in the current run, lost events with its last.
func (s *Store) Record(ctx context.Context, kind EventKind, info scanner.LinkInfo) error {
	at := info.LastSeen
	if kind == EventFound {
		at = info.FirstSeen
	}
	if at.IsZero() {
		at = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO link_events(at_ms, kind, data_rate, channel, detections)
		VALUES(?, ?, ?, ?, ?)
	`,
		toUnixMillis(at),
		string(kind),
		info.DataRate.String(),
		int(info.Channel),
		info.DetectionCount,
	)
	if err != nil {
		return fmt.Errorf("insert link event: %w", err)
	}

	return nil
}

// Events returns the recorded events, oldest first. A limit of zero or less
// returns all of them.
func (s *Store) Events(ctx context.Context, limit int) ([]Event, error) {
	query := `
		SELECT id, at_ms, kind, data_rate, channel, detections
		FROM link_events
		ORDER BY at_ms, id
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query link events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var (
			ev   Event
			atMS int64
			kind string
			rate string
			ch   int
		)
		if err := rows.Scan(&ev.ID, &atMS, &kind, &rate, &ch, &ev.Detections); err != nil {
			return nil, fmt.Errorf("scan link event: %w", err)
		}
		link, err := parseLink(rate, ch)
		if err != nil {
			return nil, err
		}
		ev.At = fromUnixMillis(atMS)
		ev.Kind = EventKind(kind)
		ev.Link = link
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate link events: %w", err)
	}

	return events, nil
}

// Links summarises the history of every link ever seen, ordered by data
// rate then channel.
func (s *Store) Links(ctx context.Context) ([]LinkSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data_rate, channel, MIN(at_ms), MAX(at_ms),
			SUM(CASE WHEN kind = 'found' THEN 1 ELSE 0 END),
			SUM(CASE WHEN kind = 'lost' THEN 1 ELSE 0 END)
		FROM link_events
		GROUP BY data_rate, channel
	`)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var links []LinkSummary
	for rows.Next() {
		var (
			sum             LinkSummary
			rate            string
			ch              int
			firstMS, lastMS int64
		)
		if err := rows.Scan(&rate, &ch, &firstMS, &lastMS, &sum.Found, &sum.Lost); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		link, err := parseLink(rate, ch)
		if err != nil {
			return nil, err
		}
		sum.Link = link
		sum.FirstSeen = fromUnixMillis(firstMS)
		sum.LastSeen = fromUnixMillis(lastMS)
		links = append(links, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}

	sortSummaries(links)
	return links, nil
}

// Clear deletes all recorded events.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM link_events`); err != nil {
		return fmt.Errorf("clear link events: %w", err)
	}
	return nil
}

// Recorder persists or forwards link transitions.
type Recorder interface {
	Record(ctx context.Context, kind EventKind, info scanner.LinkInfo) error
}

// Attach makes the scanner configuration pass every transition to rec.
// Existing callbacks still run. Record errors are passed to onErr when it is
// set.
func Attach(ctx context.Context, cfg *scanner.ScanConfig, rec Recorder, onErr func(error)) {
	wrap := func(kind EventKind, next func(scanner.LinkInfo)) func(scanner.LinkInfo) {
		return func(info scanner.LinkInfo) {
			if err := rec.Record(ctx, kind, info); err != nil && onErr != nil {
				onErr(err)
			}
			if next != nil {
				next(info)
			}
		}
	}
	cfg.OnLinkDetected = wrap(EventFound, cfg.OnLinkDetected)
	cfg.OnLinkLost = wrap(EventLost, cfg.OnLinkLost)
}

func parseLink(rate string, ch int) (scanner.Link, error) {
	r, err := crazyradio.ParseDataRate(rate)
	if err != nil {
		return scanner.Link{}, fmt.Errorf("stored link: %w", err)
	}
	return scanner.Link{DataRate: r, Channel: crazyradio.RadioChannel(ch)}, nil
}

func sortSummaries(links []LinkSummary) {
	sort.Slice(links, func(i, j int) bool {
		a, b := links[i].Link, links[j].Link
		if a.DataRate != b.DataRate {
			return a.DataRate < b.DataRate
		}
		return a.Channel < b.Channel
	})
}
