package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/YiuTerran/go-director/apm"
	"github.com/YiuTerran/go-director/base/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

/**  启动配置，来源优先级：命令行 > 环境变量(DIRECTOR_*) > 配置文件 > 默认值
  *  @author tryao
  *  @date 2022/09/09 14:02
**/

const envPrefix = "DIRECTOR"

type Config struct {
	Director DirectorConfig `mapstructure:"director"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Log      LogConfig      `mapstructure:"log"`
	Apm      ApmConfig      `mapstructure:"apm"`
}

type DirectorConfig struct {
	Listen       string        `mapstructure:"listen"`
	WsListen     string        `mapstructure:"ws-listen"`
	MaxConn      int           `mapstructure:"max-conn"`
	PendingWrite int           `mapstructure:"pending-write"`
	MaxBuffered  int           `mapstructure:"max-buffered"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
	// ws相关，证书和密钥都设置时使用wss
	WsCertFile    string        `mapstructure:"ws-cert-file"`
	WsKeyFile     string        `mapstructure:"ws-key-file"`
	WsHTTPTimeout time.Duration `mapstructure:"ws-http-timeout"`
}

type AdminConfig struct {
	// Listen 为空时不启动管理接口
	Listen string `mapstructure:"listen"`
}

// ApmConfig 管理接口的链路追踪，Enable为false时不初始化
// Endpoint为空时输出到控制台
type ApmConfig struct {
	Enable      bool    `mapstructure:"enable"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	TLS         bool    `mapstructure:"tls"`
	SampleRate  float64 `mapstructure:"sample-rate"`
	Environment string  `mapstructure:"environment"`
}

type LogConfig struct {
	Name      string `mapstructure:"name"`
	Path      string `mapstructure:"path"`
	Level     string `mapstructure:"level"`
	Type      string `mapstructure:"type"`
	Rotate    bool   `mapstructure:"rotate"`
	MaxSize   int    `mapstructure:"max-size"`
	MaxAge    int    `mapstructure:"max-age"`
	MaxBackup int    `mapstructure:"max-backup"`
}

var ErrHelp = pflag.ErrHelp

func setDefaults(vp *viper.Viper) {
	vp.SetDefault("director.listen", "0.0.0.0:7100")
	vp.SetDefault("director.ws-listen", "")
	vp.SetDefault("director.max-conn", 0)
	vp.SetDefault("director.pending-write", 1024)
	vp.SetDefault("director.max-buffered", 0)
	vp.SetDefault("director.read-timeout", time.Duration(0))
	vp.SetDefault("director.write-timeout", 10*time.Second)
	vp.SetDefault("director.ws-http-timeout", 10*time.Second)
	vp.SetDefault("admin.listen", "127.0.0.1:7180")
	vp.SetDefault("log.name", "director")
	vp.SetDefault("log.level", string(log.LevelInfo))
	vp.SetDefault("log.type", "console")
	vp.SetDefault("log.max-size", 100)
	vp.SetDefault("apm.protocol", apm.ProtocolHTTP)
	vp.SetDefault("apm.sample-rate", 1.0)
}

// NewFlagSet 命令行参数，会绑定到对应的配置项
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP("config", "c", "", "config file path (yaml, json or toml)")
	fs.String("listen", "", "tcp listen address for agents")
	fs.String("ws-listen", "", "websocket listen address for agents, empty to disable")
	fs.String("admin", "", "admin http listen address, empty to disable")
	fs.String("log-level", "", "debug, info, warn or error")
	fs.BoolP("help", "h", false, "show help")
	return fs
}

var flagKeys = map[string]string{
	"listen":    "director.listen",
	"ws-listen": "director.ws-listen",
	"admin":     "admin.listen",
	"log-level": "log.level",
}

// Load 解析命令行参数并读取配置
// -h时返回ErrHelp
func Load(name string, args []string) (*Config, *SafeViper, error) {
	fs := NewFlagSet(name)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if help, _ := fs.GetBool("help"); help {
		return nil, nil, ErrHelp
	}

	vp := viper.New()
	setDefaults(vp)
	vp.SetEnvPrefix(envPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	vp.AutomaticEnv()

	for flagName, key := range flagKeys {
		if err := vp.BindPFlag(key, fs.Lookup(flagName)); err != nil {
			return nil, nil, err
		}
	}

	if file, _ := fs.GetString("config"); file != "" {
		vp.SetConfigFile(file)
		if err := vp.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("fail to read config %s: %w", file, err)
		}
	}

	conf, err := decode(vp)
	if err != nil {
		return nil, nil, err
	}
	sv := &SafeViper{}
	sv.Store(vp)
	return conf, sv, nil
}

func decode(vp *viper.Viper) (*Config, error) {
	var conf Config
	if err := vp.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("fail to parse config: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *Config) Validate() error {
	if c.Director.Listen == "" && c.Director.WsListen == "" {
		return errors.New("director.listen and director.ws-listen are both empty")
	}
	if c.Director.MaxConn < 0 || c.Director.PendingWrite < 0 || c.Director.MaxBuffered < 0 {
		return errors.New("director limits must not be negative")
	}
	if (c.Director.WsCertFile == "") != (c.Director.WsKeyFile == "") {
		return errors.New("director.ws-cert-file and director.ws-key-file must be set together")
	}
	if c.Director.ReadTimeout < 0 || c.Director.WriteTimeout < 0 || c.Director.WsHTTPTimeout < 0 {
		return errors.New("director timeouts must not be negative")
	}
	if c.Apm.Enable {
		if c.Apm.Protocol != apm.ProtocolHTTP && c.Apm.Protocol != apm.ProtocolGRPC {
			return fmt.Errorf("unknown apm.protocol %q", c.Apm.Protocol)
		}
		if c.Apm.SampleRate < 0 || c.Apm.SampleRate > 1 {
			return errors.New("apm.sample-rate must be in [0, 1]")
		}
	}
	return nil
}

// BuildLogger 根据log配置创建Logger
func (c *Config) BuildLogger() (*log.ZapLogger, error) {
	return log.NewBuilder().
		Name(c.Log.Name).
		Path(c.Log.Path).
		Level(log.ParseLevel(c.Log.Level)).
		OutType(log.OutTypeAlias(c.Log.Type)).
		EnableRotate(c.Log.Rotate).
		MaxSize(c.Log.MaxSize).
		MaxAge(c.Log.MaxAge).
		MaxBackUps(c.Log.MaxBackup).
		Build()
}

// TraceParam 转换为apm参数
func (c *Config) TraceParam(serviceName, version string) apm.TraceParam {
	return apm.TraceParam{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    c.Apm.Environment,
		Endpoint:       c.Apm.Endpoint,
		Protocol:       c.Apm.Protocol,
		EnableTLS:      c.Apm.TLS,
		SampleRate:     c.Apm.SampleRate,
	}
}
