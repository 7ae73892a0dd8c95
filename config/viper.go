package config

import (
	"sync"

	"github.com/YiuTerran/go-director/base/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// 默认情况下viper读入配置并不是并发安全的，这里简单的包装以下

type SafeViper struct {
	lock  sync.RWMutex
	viper *viper.Viper
}

func (sv *SafeViper) Load() *viper.Viper {
	sv.lock.RLock()
	defer sv.lock.RUnlock()
	return sv.viper
}

func (sv *SafeViper) Store(vp *viper.Viper) {
	sv.lock.Lock()
	sv.viper = vp
	sv.lock.Unlock()
}

// Watch 配置文件变化时重新解析，解析失败时记录错误并保留原来的配置
func (sv *SafeViper) Watch(logger log.Logger, cbs ...func(*Config)) {
	vp := sv.Load()
	if vp == nil || vp.ConfigFileUsed() == "" {
		return
	}
	if logger == nil {
		logger = log.Nop()
	}
	vp.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("config file %s changed: %s", e.Name, e.Op)
		sv.reload(logger, cbs...)
	})
	vp.WatchConfig()
}

// reload 只有解析和校验都成功才回调
func (sv *SafeViper) reload(logger log.Logger, cbs ...func(*Config)) bool {
	sv.lock.RLock()
	conf, err := decode(sv.viper)
	sv.lock.RUnlock()
	if err != nil {
		logger.Error("ignore invalid config %s: %v", sv.viper.ConfigFileUsed(), err)
		return false
	}
	for _, cb := range cbs {
		cb(conf)
	}
	return true
}
