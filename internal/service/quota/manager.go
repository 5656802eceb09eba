// Package quota tracks YouTube Data API quota usage for the current day.
package quota

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-caption-api-go/pkg/logger"
)

const (
	defaultDailyLimit       = 10000
	defaultThresholdPercent = 90
)

// Data API quota resets at midnight Pacific time.
var resetZone = loadResetZone()

func loadResetZone() *time.Location {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		return time.FixedZone("PT", -8*60*60)
	}
	return loc
}

// Info is a snapshot of the day's usage.
type Info struct {
	Day       string
	Used      int
	Limit     int
	Threshold int
}

// Remaining returns the units left before the threshold.
func (i Info) Remaining() int {
	if r := i.Threshold - i.Used; r > 0 {
		return r
	}
	return 0
}

// Manager handles YouTube API quota management.
type Manager struct {
	mu               sync.Mutex
	dailyLimit       int
	thresholdPercent int // Stop calling the API when this % of quota is used
	day              string
	used             int
	now              func() time.Time
}

// NewManager creates a new quota manager.
func NewManager(dailyLimit, thresholdPercent int) *Manager {
	if dailyLimit <= 0 {
		dailyLimit = defaultDailyLimit
	}
	if thresholdPercent <= 0 || thresholdPercent > 100 {
		thresholdPercent = defaultThresholdPercent
	}

	return &Manager{
		dailyLimit:       dailyLimit,
		thresholdPercent: thresholdPercent,
		now:              time.Now,
	}
}

// Reserve records cost units for operation if they fit under the threshold.
// It returns false, recording nothing, when they do not.
func (m *Manager) Reserve(cost int, operation string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rollover()
	threshold := m.threshold()

	if m.used+cost > threshold {
		logger.Log.Warn("YouTube API quota threshold reached",
			zap.Int("used", m.used),
			zap.Int("threshold", threshold),
			zap.Int("cost", cost),
			zap.String("operation", operation),
		)
		return false
	}

	m.used += cost
	logger.Log.Debug("YouTube API quota used",
		zap.Int("used", m.used),
		zap.Int("limit", m.dailyLimit),
		zap.Int("cost", cost),
		zap.String("operation", operation),
	)
	return true
}

// Info returns the current usage.
func (m *Manager) Info() Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rollover()
	return Info{Day: m.day, Used: m.used, Limit: m.dailyLimit, Threshold: m.threshold()}
}

// IsExhausted checks if the quota threshold has been reached.
func (m *Manager) IsExhausted() bool {
	return m.Info().Remaining() == 0
}

func (m *Manager) threshold() int {
	return m.dailyLimit * m.thresholdPercent / 100
}

func (m *Manager) rollover() {
	day := m.now().In(resetZone).Format("2006-01-02")
	if day != m.day {
		m.day = day
		m.used = 0
	}
}
