package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"aurum/internal/types"
)

// 中文说明：
// 审计库：每次规则评估落一行，按天分区（day 列），只供离线复盘，
// 不参与控制流。替代了早期迭代按天滚动的 CSV。

// Evaluation 单次评估的审计行。
type Evaluation struct {
	ID         uint      `gorm:"primaryKey"`
	CreatedAt  time.Time `gorm:"index"`
	Day        string    `gorm:"index;size:10"`
	SignalID   string    `gorm:"size:36"`
	CandleTS   int64
	Signal     string `gorm:"size:8"`
	Reason     string
	PriceClose float64
	Spread     float64
	RSI        float64
	ADX        float64
	ATR        float64
	SafeDist   float64
	ActualDist float64
	StopLevel  float64
	FreezeLvl  float64
	FeedLag    float64
	Warnings   string
	Metrics    datatypes.JSON
}

type Store struct {
	db *gorm.DB
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("audit database path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening audit db: %w", err)
	}
	if err := db.AutoMigrate(&Evaluation{}); err != nil {
		return nil, fmt.Errorf("migrating audit db: %w", err)
	}
	return &Store{db: db}, nil
}

// Record appends one evaluation row. Initialization noise (nil snapshot
// ticks) is not worth a row.
func (s *Store) Record(c types.SignalContract, priceClose float64) error {
	mj, _ := json.Marshal(c.Metrics)
	row := Evaluation{
		CreatedAt:  time.Now(),
		Day:        time.Now().UTC().Format("2006-01-02"),
		SignalID:   c.ID,
		CandleTS:   c.CandleTime,
		Signal:     string(c.Direction),
		Reason:     c.Reason,
		PriceClose: priceClose,
		Spread:     c.Metrics.Spread,
		RSI:        c.Metrics.RSI,
		ADX:        c.Metrics.ADX,
		ATR:        c.Metrics.ATR,
		SafeDist:   c.Metrics.SafeDistance,
		ActualDist: c.Metrics.LevelDistance,
		StopLevel:  c.Metrics.StopLevel,
		FreezeLvl:  c.Metrics.FreezeLevel,
		FeedLag:    c.Metrics.FeedLagRaw,
		Warnings:   strings.Join(c.Metrics.Warnings, "; "),
		Metrics:    datatypes.JSON(mj),
	}
	return s.db.Create(&row).Error
}

// Recent returns the newest rows for the status API.
func (s *Store) Recent(limit int) ([]Evaluation, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []Evaluation
	err := s.db.Order("id desc").Limit(limit).Find(&rows).Error
	return rows, err
}
