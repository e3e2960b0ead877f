package score

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"scorebot.dev/plusplus-bot/internal/common"
)

// MemoryStore is an in-process Store for tests and local development.
// It mirrors the transactional behavior of the PostgreSQL repository:
// every mutating call either fully applies or leaves state untouched.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*UserScoreRecord
	logs    []ScoreLogEntry
	wallet  BotWallet
	nextID  int64
	clock   clockwork.Clock
}

// NewMemoryStore creates a memory store with the given wallet seed.
func NewMemoryStore(botName string, seedTokens int64, clock clockwork.Clock) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*UserScoreRecord),
		wallet:  BotWallet{ID: 1, Name: botName, Token: seedTokens},
		clock:   clock,
	}
}

func (s *MemoryStore) FindOrCreate(_ context.Context, key, displayName string) (*UserScoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecord(s.findOrCreateLocked(key, displayName)), nil
}

func (s *MemoryStore) Find(_ context.Context, key string) (*UserScoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, common.ErrRecordNotFound
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) ApplyDelta(_ context.Context, key string, delta int64, reasonKey string, entry ScoreLogEntry) (*UserScoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, common.ErrRecordNotFound
	}
	// Reasonless votes tally under the empty key so score stays equal
	// to the sum of the reason buckets.
	rec.Score += delta
	rec.Reasons[reasonKey] += delta
	rec.UpdatedAt = s.clock.Now()
	s.logs = append(s.logs, entry)
	return cloneRecord(rec), nil
}

func (s *MemoryStore) IncrementPointsGiven(_ context.Context, fromKey, encodedToKey string) (*UserScoreRecord, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[fromKey]
	if !ok {
		return nil, 0, common.ErrRecordNotFound
	}
	rec.PointsGiven[encodedToKey]++
	rec.TotalPointsGiven++
	rec.UpdatedAt = s.clock.Now()
	return cloneRecord(rec), rec.PointsGiven[encodedToKey], nil
}

func (s *MemoryStore) ExistsInWindow(_ context.Context, fromKey, toKey string, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.logs) - 1; i >= 0; i-- {
		e := s.logs[i]
		if e.FromKey == fromKey && e.ToKey == toKey && !e.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) TransferTokens(_ context.Context, fromKey, toKey string, amount int64, entry ScoreLogEntry) (*UserScoreRecord, *UserScoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, ok := s.records[fromKey]
	if !ok {
		return nil, nil, common.ErrRecordNotFound
	}
	to, ok := s.records[toKey]
	if !ok {
		return nil, nil, common.ErrRecordNotFound
	}
	if from.AccountLevel < LevelTokens || to.AccountLevel < LevelTokens {
		return nil, nil, common.ErrAccountLevelTooLow
	}
	if from.Token < amount {
		return nil, nil, common.ErrInsufficientTokens
	}
	from.Token -= amount
	to.Token += amount
	now := s.clock.Now()
	from.UpdatedAt, to.UpdatedAt = now, now
	s.logs = append(s.logs, entry)
	return cloneRecord(from), cloneRecord(to), nil
}

func (s *MemoryStore) MintTokens(_ context.Context, key string, amount int64) (*UserScoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, common.ErrRecordNotFound
	}
	if s.wallet.Token-amount < 0 || rec.Token+amount < 0 {
		return nil, common.ErrInsufficientTokens
	}
	s.wallet.Token -= amount
	rec.Token += amount
	rec.UpdatedAt = s.clock.Now()
	return cloneRecord(rec), nil
}

func (s *MemoryStore) EraseReason(_ context.Context, key, reasonKey string) (*UserScoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, common.ErrRecordNotFound
	}
	prior := rec.Reasons[reasonKey]
	rec.Score -= prior
	delete(rec.Reasons, reasonKey)
	rec.UpdatedAt = s.clock.Now()
	return cloneRecord(rec), nil
}

func (s *MemoryStore) DeleteRecord(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *MemoryStore) SetLevel(_ context.Context, key string, level int) (*UserScoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, common.ErrRecordNotFound
	}
	rec.AccountLevel = level
	rec.Token = 0
	rec.UpdatedAt = s.clock.Now()
	return cloneRecord(rec), nil
}

func (s *MemoryStore) Wallet(_ context.Context) (*BotWallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.wallet
	return &w, nil
}

func (s *MemoryStore) AllRecords(_ context.Context) ([]*UserScoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*UserScoreRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *MemoryStore) TopScores(_ context.Context, limit int) ([]*UserScoreRecord, error) {
	all, _ := s.AllRecords(context.Background())
	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemoryStore) ScoreChangesSince(_ context.Context, since time.Time, limit int) ([]LeaderboardRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := make(map[string]*LeaderboardRow)
	for _, e := range s.logs {
		if e.CreatedAt.Before(since) {
			continue
		}
		row, ok := totals[e.ToKey]
		if !ok {
			row = &LeaderboardRow{Key: e.ToKey}
			totals[e.ToKey] = row
		}
		row.Total += e.ScoreChange
		row.Votes++
	}
	out := make([]LeaderboardRow, 0, len(totals))
	for _, row := range totals {
		out = append(out, *row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) AnniversariesOn(_ context.Context, day time.Time) ([]*UserScoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*UserScoreRecord
	for _, rec := range s.records {
		if rec.AnniversaryDate.Month() == day.Month() && rec.AnniversaryDate.Day() == day.Day() {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Logs returns a copy of the audit log, for tests.
func (s *MemoryStore) Logs() []ScoreLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ScoreLogEntry(nil), s.logs...)
}

func (s *MemoryStore) findOrCreateLocked(key, displayName string) *UserScoreRecord {
	if rec, ok := s.records[key]; ok {
		return rec
	}
	s.nextID++
	now := s.clock.Now()
	rec := &UserScoreRecord{
		ID:              s.nextID,
		Key:             key,
		DisplayName:     displayName,
		Reasons:         make(map[string]int64),
		PointsGiven:     make(map[string]int64),
		AccountLevel:    LevelBasic,
		AnniversaryDate: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.records[key] = rec
	return rec
}

func cloneRecord(rec *UserScoreRecord) *UserScoreRecord {
	if rec == nil {
		return nil
	}
	out := *rec
	out.Reasons = make(map[string]int64, len(rec.Reasons))
	for k, v := range rec.Reasons {
		out.Reasons[k] = v
	}
	out.PointsGiven = make(map[string]int64, len(rec.PointsGiven))
	for k, v := range rec.PointsGiven {
		out.PointsGiven[k] = v
	}
	return &out
}
