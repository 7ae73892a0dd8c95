package director

// Handler 接收所有非控制消息，在扇出之后调用
// 实现不能长时间阻塞，耗时的处理应该交给别的协程
type Handler interface {
	OnMessage(dests []Channel, sender Channel, msgType uint16, body []byte)
}

// HandlerFunc 函数适配Handler
type HandlerFunc func(dests []Channel, sender Channel, msgType uint16, body []byte)

func (f HandlerFunc) OnMessage(dests []Channel, sender Channel, msgType uint16, body []byte) {
	f(dests, sender, msgType, body)
}
