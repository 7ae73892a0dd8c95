package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/YiuTerran/go-director/base/log"
	"github.com/YiuTerran/go-director/module"
)

/**  一般server的实现，加载所有Module
  *  @author tryao
  *  @date 2022/03/21 11:06
**/

// Run 加载所有模块，ctx结束后逆序销毁
// beforeClose是在所有模块销毁前执行的
func Run(ctx context.Context, mods []module.Module, logger log.Logger, beforeClose func()) error {
	if logger == nil {
		logger = log.Nop()
	}
	logger.Info("Server starting up...")
	m := module.NewManager(logger)
	if err := m.StaticLoad(mods); err != nil {
		return err
	}
	<-ctx.Done()
	if beforeClose != nil {
		beforeClose()
	}
	m.Destroy()
	logger.Info("Server closing down...")
	return nil
}

// StaticRun 模块以静态模式加载，收到退出信号后关闭
func StaticRun(mods []module.Module, logger log.Logger, beforeClose func()) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, mods, logger, beforeClose)
}
