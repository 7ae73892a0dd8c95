package module

import (
	"fmt"
	"sync"

	"github.com/YiuTerran/go-director/base/log"
)

// Module 按顺序初始化，逆序销毁
type Module interface {
	Name() string
	// OnInit 返回错误时已经初始化的模块会被逆序销毁
	OnInit() error
	OnDestroy()
	// Run 阻塞直到closeSig有信号
	Run(closeSig chan struct{})
}

type module struct {
	mi       Module
	closeSig chan struct{}
	wg       sync.WaitGroup
}

// Manager 管理一组模块的生命周期
type Manager struct {
	lock   sync.Mutex
	mods   []*module
	logger log.Logger
}

func NewManager(logger log.Logger) *Manager {
	if logger == nil {
		logger = log.Nop()
	}
	return &Manager{logger: logger}
}

// StaticLoad 静态加载，按严格的顺序加载模块
func (m *Manager) StaticLoad(mis []Module) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, mi := range mis {
		if err := mi.OnInit(); err != nil {
			m.destroyAll()
			return fmt.Errorf("init module %s: %w", mi.Name(), err)
		}
		mod := &module{mi: mi, closeSig: make(chan struct{}, 1)}
		m.mods = append(m.mods, mod)
		mod.wg.Add(1)
		go m.run(mod)
		m.logger.Info("module registered: %s", mi.Name())
	}
	return nil
}

func (m *Manager) run(mod *module) {
	defer mod.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.PanicStack(m.logger, fmt.Sprintf("panic in module %s", mod.mi.Name()), r)
		}
	}()
	mod.mi.Run(mod.closeSig)
}

func (m *Manager) destroyMod(mod *module) {
	defer func() {
		if r := recover(); r != nil {
			log.PanicStack(m.logger, fmt.Sprintf("panic when destroy module %s", mod.mi.Name()), r)
		}
	}()
	mod.closeSig <- struct{}{}
	mod.wg.Wait()
	mod.mi.OnDestroy()
	m.logger.Info("module destroyed: %s", mod.mi.Name())
}

func (m *Manager) destroyAll() {
	//按着严格的顺序逆序销毁模块
	for i := len(m.mods) - 1; i >= 0; i-- {
		m.destroyMod(m.mods[i])
	}
	m.mods = nil
}

// Destroy 逆序销毁所有模块
func (m *Manager) Destroy() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.destroyAll()
}
