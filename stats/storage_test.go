package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T, dir string) *Storage {
	t.Helper()

	s, err := NewStorage(dir, nil)
	require.NoError(t, err)
	return s
}

func TestStorage_RecordScan(t *testing.T) {
	s := newTestStorage(t, t.TempDir())
	defer s.Shutdown()

	s.RecordScan(true, true)
	s.RecordScan(false, true)
	s.RecordScan(true, false)
	s.RecordScan(false, false)
	s.RecordRequest()

	got := s.GetCurrentStats()
	assert.Equal(t, 4, got.Scans)
	assert.Equal(t, 2, got.SEOFailures)
	assert.Equal(t, 2, got.OracleFailures)
	assert.Equal(t, 1, got.Requests)
	assert.False(t, got.LastUpdated.IsZero())
}

func TestStorage_ShutdownPersists(t *testing.T) {
	dir := t.TempDir()

	s := newTestStorage(t, dir)
	s.RecordScan(false, true)
	require.NoError(t, s.Shutdown())
	require.NoError(t, s.Shutdown(), "second shutdown is a no-op")

	_, err := os.Stat(filepath.Join(dir, "stats.json.tmp"))
	assert.True(t, os.IsNotExist(err), "temporary file must not survive the rename")

	reloaded := newTestStorage(t, dir)
	defer reloaded.Shutdown()

	got := reloaded.GetCurrentStats()
	assert.Equal(t, 1, got.Scans)
	assert.Equal(t, 1, got.SEOFailures)
}

func TestStorage_LoadRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stats.json"), []byte("{not json"), 0o644))

	_, err := NewStorage(dir, nil)
	assert.Error(t, err)
}

func TestStorage_Cleanup(t *testing.T) {
	dir := t.TempDir()
	s := newTestStorage(t, dir)
	defer s.Shutdown()

	// March 31st minus one month normalizes to March 3rd with AddDate;
	// the previous month must still be February.
	s.now = func() time.Time { return time.Date(2025, time.March, 31, 12, 0, 0, 0, time.UTC) }

	s.mutex.Lock()
	s.stats["2025-03"] = &MonthlyStats{Scans: 1}
	s.stats["2025-02"] = &MonthlyStats{Scans: 2}
	s.stats["2025-01"] = &MonthlyStats{Scans: 3}
	s.stats["2024-12"] = &MonthlyStats{Scans: 4}
	s.mutex.Unlock()

	s.Cleanup()

	assert.Equal(t, []string{"2025-03", "2025-02"}, s.GetAllMonths())
	_, ok := s.GetMonthlyStats("2025-01")
	assert.False(t, ok)
}

func TestStorage_FileIsCompactJSON(t *testing.T) {
	dir := t.TempDir()
	s := newTestStorage(t, dir)
	s.RecordScan(true, true)
	require.NoError(t, s.Shutdown())

	data, err := os.ReadFile(filepath.Join(dir, "stats.json"))
	require.NoError(t, err)
	assert.Less(t, len(data), 1024)

	var decoded map[string]MonthlyStats
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 1)
}

func TestStorage_ConcurrentAccess(t *testing.T) {
	s := newTestStorage(t, t.TempDir())
	defer s.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.RecordScan(j%2 == 0, true)
				s.GetCurrentStats()
			}
		}()
	}
	wg.Wait()

	got := s.GetCurrentStats()
	assert.Equal(t, 1000, got.Scans)
	assert.Equal(t, 500, got.SEOFailures)
	assert.Zero(t, got.OracleFailures)
}
