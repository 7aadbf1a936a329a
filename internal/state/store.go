package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"aurum/internal/logger"
	"aurum/internal/types"
)

// 中文说明：
// 仓位状态机。单条持久化记录，temp-file + fsync + rename 原子落盘。
// 崩溃恢复的底线：读到的要么是旧的完整状态、要么是新的完整状态，
// 绝不允许半写文件把一个可能还活着的仓位弄丢。

// Status 状态查询结果。
type Status string

const (
	StatusNone      Status = "NONE"
	StatusStillOpen Status = "STILL_OPEN"
	StatusTargetHit Status = "TARGET_HIT"
	StatusStopHit   Status = "STOP_HIT"
	StatusExpired   Status = "EXPIRED"
)

// Resolved reports whether the status closes out the position.
func (s Status) Resolved() bool {
	return s == StatusTargetHit || s == StatusStopHit || s == StatusExpired
}

// Record 磁盘上的单条仓位记录。字段名与历史版本保持兼容。
type Record struct {
	Active           bool    `json:"active"`
	Type             string  `json:"type"`
	Entry            float64 `json:"entry"`
	SL               float64 `json:"sl"`
	TP               float64 `json:"tp"`
	Reason           string  `json:"reason"`
	OpenedAtCandleTS int64   `json:"opened_at_candle_ts"`
	OpenedAtWallTS   int64   `json:"opened_at_wall_ts"`
	UpdatedAt        string  `json:"updated_at"`
}

type Store struct {
	path   string
	expiry time.Duration
	now    func() time.Time
}

func NewStore(path string, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = 4 * time.Hour
	}
	return &Store{path: path, expiry: expiry, now: time.Now}
}

// Open persists a new active position. Stamps both the originating candle
// time and the process wall clock; expiry runs on the wall clock alone so a
// broker clock jump can neither suppress nor accelerate it.
// A write error means the position is NOT confirmed open.
func (s *Store) Open(direction types.Direction, entry, stop, target float64, reason string, candleTS int64) error {
	if !direction.Directional() {
		return fmt.Errorf("cannot open position with direction %s", direction)
	}
	rec := Record{
		Active:           true,
		Type:             string(direction),
		Entry:            entry,
		SL:               stop,
		TP:               target,
		Reason:           reason,
		OpenedAtCandleTS: candleTS,
		OpenedAtWallTS:   s.now().Unix(),
		UpdatedAt:        s.now().UTC().Format(time.RFC3339),
	}
	return s.writeAtomic(rec)
}

// Close resets the record to neutral zeros. Stale entry/stop/target must not
// survive a close, a later corrupted read cannot resurrect a dead direction.
func (s *Store) Close() error {
	return s.writeAtomic(Record{
		Active:    false,
		UpdatedAt: s.now().UTC().Format(time.RFC3339),
	})
}

// Status reconciles the stored position against the latest quote (checked
// first, faster detection) and the latest completed candle extremes (durable
// backstop for touches missed between polls). Idempotent until Close.
func (s *Store) Status(high, low, bid, ask float64) (Status, *Record) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return StatusNone, nil
	}
	if err != nil {
		// unreadable state is treated like corruption: fail closed
		logger.Errorf("state: read failed, locking: %v", err)
		return StatusStillOpen, nil
	}
	var rec Record
	if jerr := json.Unmarshal(raw, &rec); jerr != nil {
		s.quarantine(jerr)
		return StatusStillOpen, nil
	}
	if !rec.Active {
		return StatusNone, &rec
	}
	dir := types.Direction(rec.Type)
	if !dir.Directional() {
		// nothing coherent to resolve against
		logger.Warnf("state: unknown direction %q in active record", rec.Type)
		return StatusNone, &rec
	}
	if rec.SL == 0 || rec.TP == 0 {
		// keep it open, but never resolve without levels
		logger.Warnf("state: active record missing levels (sl=%.2f tp=%.2f)", rec.SL, rec.TP)
		return StatusStillOpen, &rec
	}
	if s.now().Unix()-rec.OpenedAtWallTS > int64(s.expiry.Seconds()) {
		return StatusExpired, &rec
	}

	if dir == types.DirectionBuy {
		if (bid > 0 && bid >= rec.TP) || high >= rec.TP {
			return StatusTargetHit, &rec
		}
		if (bid > 0 && bid <= rec.SL) || (low > 0 && low <= rec.SL) {
			return StatusStopHit, &rec
		}
	} else {
		if (ask > 0 && ask <= rec.TP) || (low > 0 && low <= rec.TP) {
			return StatusTargetHit, &rec
		}
		if (ask > 0 && ask >= rec.SL) || high >= rec.SL {
			return StatusStopHit, &rec
		}
	}
	return StatusStillOpen, &rec
}

// quarantine renames the corrupt file aside with a timestamp suffix. Never
// deleted: the broken payload is the forensic trail. The rename also stops
// every following poll from tripping over the same corruption.
func (s *Store) quarantine(cause error) {
	dst := fmt.Sprintf("%s.corrupt-%d", s.path, s.now().Unix())
	if err := os.Rename(s.path, dst); err != nil {
		logger.Errorf("state: quarantine rename failed: %v (corrupt cause: %v)", err, cause)
		return
	}
	logger.Errorf("state: corrupt file quarantined to %s (cause: %v), system locked", dst, cause)
}

func (s *Store) writeAtomic(rec Record) error {
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("state dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("state marshal: %w", err)
	}
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("state tmp open: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("state tmp write: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("state tmp fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("state tmp close: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("state rename: %w", err)
	}
	return nil
}
