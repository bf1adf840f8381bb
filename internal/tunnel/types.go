package tunnel

import "time"

// 描述符来源。
const (
	SourceLog = "log" // 读取 ngrok 日志文件
	SourceAPI = "api" // 查询 ngrok 本地 API
)

const (
	DefaultBin     = "ngrok"
	DefaultRegion  = "us"
	DefaultLogFile = "ngrok.log"
	DefaultAPIAddr = "http://127.0.0.1:4040"

	stopGrace = 5 * time.Second
)

// Config 描述启动 ngrok TCP 隧道所需的配置。
type Config struct {
	AuthToken string // ngrok authtoken
	Region    string // 区域，例如 us、eu、ap
	Bin       string // ngrok 可执行文件，默认从 PATH 查找
	LogFile   string // ngrok 日志文件，log 来源从这里读取描述符
	APIAddr   string // ngrok 本地 API 地址
	Source    string // log 或 api
}

func (c Config) withDefaults() Config {
	if c.Bin == "" {
		c.Bin = DefaultBin
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.LogFile == "" {
		c.LogFile = DefaultLogFile
	}
	if c.APIAddr == "" {
		c.APIAddr = DefaultAPIAddr
	}
	if c.Source == "" {
		c.Source = SourceLog
	}
	return c
}

// apiTunnel 是 ngrok 本地 API 中的一条隧道。
type apiTunnel struct {
	Name      string `json:"name"`
	Proto     string `json:"proto"`
	PublicURL string `json:"public_url"`
}

type apiTunnelList struct {
	Tunnels []apiTunnel `json:"tunnels"`
}
