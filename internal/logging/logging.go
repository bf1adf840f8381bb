// Package logging 配置标准库日志。
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup 设置日志格式；logfile 非空时通过 lumberjack 轮转，为空时输出到 stderr。
func Setup(logfile string) io.Writer {
	log.SetFlags(log.Lshortfile | log.Ltime)

	var out io.Writer = os.Stderr
	if logfile != "" {
		out = &lumberjack.Logger{
			Filename:   logfile,
			MaxSize:    20,
			MaxBackups: 3,
			MaxAge:     14,
		}
	}
	log.SetOutput(out)
	return out
}

// SetupCli 一次性命令默认不打印时间戳，verbose 时保留。
func SetupCli(verbose bool) {
	if verbose {
		log.SetFlags(log.Lshortfile | log.Ltime)
	} else {
		log.SetFlags(0)
	}
}
