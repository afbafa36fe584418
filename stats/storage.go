// Package stats keeps monthly scan counters in a small JSON file.
package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/seo-optimizer/monitor/logging"
)

const (
	monthLayout   = "2006-01"
	flushInterval = 5 * time.Minute
	writeDebounce = time.Minute
)

// MonthlyStats holds the counters for one calendar month.
type MonthlyStats struct {
	Requests       int       `json:"requests"`
	Scans          int       `json:"scans"`
	SEOFailures    int       `json:"seo_failures"`
	OracleFailures int       `json:"oracle_failures"`
	LastUpdated    time.Time `json:"last_updated"`
}

// Storage handles persistent storage of statistics
type Storage struct {
	mutex       sync.RWMutex
	stats       map[string]*MonthlyStats // key: "YYYY-MM"
	filePath    string
	lastWrite   time.Time
	writeBuffer chan struct{}
	done        chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
	log         logging.Logger
	now         func() time.Time
}

// NewStorage loads dataDir/stats.json if present and starts the background
// writer. Call Shutdown to stop it and flush.
func NewStorage(dataDir string, log logging.Logger) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if log == nil {
		log = logging.NewNop()
	}

	s := &Storage{
		stats:       make(map[string]*MonthlyStats),
		filePath:    filepath.Join(dataDir, "stats.json"),
		writeBuffer: make(chan struct{}, 1),
		done:        make(chan struct{}),
		log:         log,
		now:         time.Now,
	}

	if err := s.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	s.wg.Add(1)
	go s.backgroundWriter()

	return s, nil
}

func (s *Storage) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	return json.Unmarshal(data, &s.stats)
}

// save writes to a temporary file and renames it over the real one.
func (s *Storage) save() error {
	s.mutex.RLock()
	data, err := json.Marshal(s.stats)
	s.mutex.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tempFile, s.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

func (s *Storage) saveAndLog() {
	if err := s.save(); err != nil {
		s.log.Error("Failed to persist statistics", logging.Error(err))
	}
}

func (s *Storage) backgroundWriter() {
	defer s.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.writeBuffer:
			s.saveAndLog()
		case <-ticker.C:
			s.saveAndLog()
		case <-s.done:
			return
		}
	}
}

func (s *Storage) currentMonth() string {
	return s.now().Format(monthLayout)
}

// requestWrite signals the writer without blocking; a pending request absorbs
// further ones.
func (s *Storage) requestWrite() {
	select {
	case s.writeBuffer <- struct{}{}:
	default:
	}
}

// update applies fn to the current month's counters. Callers hold no lock.
func (s *Storage) update(fn func(*MonthlyStats)) {
	month := s.currentMonth()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	stats, exists := s.stats[month]
	if !exists {
		stats = &MonthlyStats{}
		s.stats[month] = stats
	}
	fn(stats)
	stats.LastUpdated = s.now()

	if s.now().Sub(s.lastWrite) > writeDebounce {
		s.requestWrite()
		s.lastWrite = s.now()
	}
}

// RecordScan counts one rescan and the sides that had to be substituted.
func (s *Storage) RecordScan(seoOK, oracleOK bool) {
	s.update(func(m *MonthlyStats) {
		m.Scans++
		if !seoOK {
			m.SEOFailures++
		}
		if !oracleOK {
			m.OracleFailures++
		}
	})
}

// RecordRequest counts one served API request.
func (s *Storage) RecordRequest() {
	s.update(func(m *MonthlyStats) { m.Requests++ })
}

// GetCurrentStats returns statistics for the current month
func (s *Storage) GetCurrentStats() MonthlyStats {
	stats, _ := s.GetMonthlyStats(s.currentMonth())
	return stats
}

// GetMonthlyStats returns statistics for a specific month
func (s *Storage) GetMonthlyStats(yearMonth string) (MonthlyStats, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if stats, exists := s.stats[yearMonth]; exists {
		return *stats, true
	}
	return MonthlyStats{}, false
}

// GetAllMonths returns every month with statistics, newest first.
func (s *Storage) GetAllMonths() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	months := make([]string, 0, len(s.stats))
	for month := range s.stats {
		months = append(months, month)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))

	return months
}

// Cleanup drops everything but the current and previous month.
func (s *Storage) Cleanup() {
	now := s.now()
	currentMonth := now.Format(monthLayout)
	previousMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).
		AddDate(0, -1, 0).Format(monthLayout)

	s.mutex.Lock()
	removed := 0
	for key := range s.stats {
		if key != currentMonth && key != previousMonth {
			delete(s.stats, key)
			removed++
		}
	}
	s.mutex.Unlock()

	s.requestWrite()

	s.log.Debug("Cleaned up statistics",
		logging.String("current", currentMonth),
		logging.String("previous", previousMonth),
		logging.Int("removed", removed),
	)
}

// Shutdown stops the background writer and writes the final state.
func (s *Storage) Shutdown() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		err = s.save()
	})
	return err
}
