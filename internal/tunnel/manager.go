package tunnel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"ngrokdns/internal/endpoint"
)

// Logger 与 *log.Logger 兼容。
type Logger interface {
	Printf(format string, v ...any)
}

// commandFunc 构造子进程，测试中可替换。
type commandFunc func(name string, args ...string) *exec.Cmd

// Manager 管理 ngrok 进程的生命周期。
type Manager struct {
	cfg     Config
	logger  Logger
	command commandFunc

	mu      sync.Mutex
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
}

// NewManager 创建隧道管理器。
func NewManager(cfg Config, logger Logger) (*Manager, error) {
	if cfg.AuthToken == "" {
		return nil, errors.New("ngrok authtoken 不能为空")
	}
	cfg = cfg.withDefaults()
	if cfg.Source != SourceLog && cfg.Source != SourceAPI {
		return nil, fmt.Errorf("未知的描述符来源: %s", cfg.Source)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{cfg: cfg, logger: logger, command: exec.Command}, nil
}

// Args 返回启动 ngrok 的参数。
func (m *Manager) Args(localPort int) []string {
	return []string{
		"tcp", strconv.Itoa(localPort),
		"--authtoken", m.cfg.AuthToken,
		"--region", m.cfg.Region,
		"--log", m.cfg.LogFile,
		"--log-format", "logfmt",
	}
}

// Start 截断旧日志并启动 ngrok。ctx 只约束启动过程，进程由 Stop 终止。
func (m *Manager) Start(ctx context.Context, localPort int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cmd != nil {
		return errors.New("隧道已运行")
	}
	if localPort < 1 || localPort > 65535 {
		return fmt.Errorf("本地端口无效: %d", localPort)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// 旧日志中的地址属于上一次会话
	if dir := filepath.Dir(m.cfg.LogFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建日志目录失败: %w", err)
		}
	}
	if err := os.WriteFile(m.cfg.LogFile, nil, 0o644); err != nil {
		return fmt.Errorf("重置 ngrok 日志失败: %w", err)
	}

	cmd := m.command(m.cfg.Bin, m.Args(localPort)...)
	hideWindow(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("启动 ngrok 失败: %w", err)
	}

	m.cmd = cmd
	m.done = make(chan struct{})
	m.waitErr = nil
	go func(cmd *exec.Cmd, done chan struct{}) {
		err := cmd.Wait()
		m.mu.Lock()
		m.waitErr = err
		m.mu.Unlock()
		close(done)
	}(cmd, m.done)

	m.logger.Printf("ngrok 已启动: tcp %d (region: %s, pid: %d)", localPort, m.cfg.Region, cmd.Process.Pid)
	return nil
}

// Stop 先发送中断信号，超时后强制结束进程。
func (m *Manager) Stop() error {
	m.mu.Lock()
	cmd, done := m.cmd, m.done
	m.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
	}
	select {
	case <-time.After(stopGrace):
		_ = cmd.Process.Kill()
		<-done
	case <-done:
	}

	m.mu.Lock()
	m.cmd = nil
	m.mu.Unlock()
	return nil
}

// Running 报告 ngrok 进程是否仍在运行。
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cmd == nil {
		return false
	}
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

// Exited 在进程退出后关闭，未启动时返回 nil。
func (m *Manager) Exited() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// ExitErr 返回进程退出时 Wait 的错误。
func (m *Manager) ExitErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waitErr
}

// Source 返回配置的描述符读取函数。
func (m *Manager) Source() endpoint.ReadFunc {
	if m.cfg.Source == SourceAPI {
		return NewAPISource(m.cfg.APIAddr).Read
	}
	return LogFileSource{Path: m.cfg.LogFile}.Read
}
