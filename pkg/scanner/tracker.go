package scanner

import (
	"sort"
	"sync"
	"time"

	"github.com/herlein/gocrazy/pkg/crazyradio"
)

// Link identifies a Crazyflie by the data rate and channel it answers on.
type Link struct {
	DataRate crazyradio.DataRate     `json:"data_rate"`
	Channel  crazyradio.RadioChannel `json:"channel"`
}

// LinkInfo is the tracking state of one link.
type LinkInfo struct {
	Link
	FirstSeen      time.Time
	LastSeen       time.Time
	DetectionCount int
	Missed         int // consecutive passes without an answer
	Active         bool
}

// LinkTracker follows links across scan passes with hysteresis: a link is
// reported lost only after it has been missing for lostAfter passes.
type LinkTracker struct {
	mu        sync.RWMutex
	links     map[Link]*LinkInfo
	lostAfter int

	// Callbacks
	onDetected func(LinkInfo)
	onLost     func(LinkInfo)
}

// NewLinkTracker creates a new link tracker
func NewLinkTracker(lostAfter int) *LinkTracker {
	return &LinkTracker{
		links:     make(map[Link]*LinkInfo),
		lostAfter: lostAfter,
	}
}

// SetCallbacks sets the link detection callbacks
func (t *LinkTracker) SetCallbacks(onDetected, onLost func(LinkInfo)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDetected = onDetected
	t.onLost = onLost
}

// Update records one scan pass. Callbacks run after the tracker is unlocked.
func (t *LinkTracker) Update(timestamp time.Time, results []crazyradio.ScanResult) {
	var detected, lost []LinkInfo

	t.mu.Lock()
	seen := make(map[Link]bool)
	for _, result := range results {
		for _, ch := range result.Channels {
			link := Link{DataRate: result.DataRate, Channel: ch}
			seen[link] = true

			info, exists := t.links[link]
			if !exists {
				info = &LinkInfo{Link: link, FirstSeen: timestamp}
				t.links[link] = info
			}
			info.LastSeen = timestamp
			info.DetectionCount++
			info.Missed = 0
			if !info.Active {
				info.Active = true
				detected = append(detected, *info)
			}
		}
	}

	for link, info := range t.links {
		if seen[link] || !info.Active {
			continue
		}
		info.Missed++
		if info.Missed >= t.lostAfter {
			info.Active = false
			lost = append(lost, *info)
		}
	}
	onDetected, onLost := t.onDetected, t.onLost
	t.mu.Unlock()

	sortLinks(lost)
	if onDetected != nil {
		for _, info := range detected {
			onDetected(info)
		}
	}
	if onLost != nil {
		for _, info := range lost {
			onLost(info)
		}
	}
}

// GetActiveLinks returns the links currently answering, ordered by data rate
// then channel
func (t *LinkTracker) GetActiveLinks() []LinkInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var links []LinkInfo
	for _, info := range t.links {
		if info.Active {
			links = append(links, *info)
		}
	}
	sortLinks(links)
	return links
}

// GetAllLinks returns every link ever seen
func (t *LinkTracker) GetAllLinks() []LinkInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	links := make([]LinkInfo, 0, len(t.links))
	for _, info := range t.links {
		links = append(links, *info)
	}
	sortLinks(links)
	return links
}

// Clear removes all tracked links
func (t *LinkTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.links = make(map[Link]*LinkInfo)
}

// PruneOld removes links not seen since the given time
func (t *LinkTracker) PruneOld(since time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for key, info := range t.links {
		if info.LastSeen.Before(since) {
			delete(t.links, key)
			count++
		}
	}
	return count
}

func sortLinks(links []LinkInfo) {
	sort.Slice(links, func(i, j int) bool {
		if links[i].DataRate != links[j].DataRate {
			return links[i].DataRate < links[j].DataRate
		}
		return links[i].Channel < links[j].Channel
	})
}
