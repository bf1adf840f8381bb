package store

import (
	"errors"
	"time"
)

const (
	// DefaultStatusID 是单实例部署使用的状态行。
	DefaultStatusID = "default"
	defaultTimeout  = 5 * time.Second
)

const (
	dialectMySQL  = "mysql"
	dialectSQLite = "sqlite"
)

var ErrNotFound = errors.New("not found")

// Setting 是一条持久化的配置项。Secret 为 true 时值以编码形式存储。
type Setting struct {
	Key       string
	Value     string
	Secret    bool
	UpdatedAt time.Time
}

// SyncStatus 记录最近一次同步的结果。
type SyncStatus struct {
	ID             string
	Address        string // host:port，未取得地址时为空
	State          string // 终态，例如 ready、aborted
	Zone           string
	AddressUpdated bool
	ServiceUpdated bool
	Notified       bool
	Warnings       []string
	LastError      string
	UpdatedAt      time.Time
}
