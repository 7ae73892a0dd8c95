package apm

import "io"

/**
  *  @author tryao
  *  @date 2022/12/07 16:52
**/
const (
	ProtocolHTTP = "http"
	ProtocolGRPC = "grpc"
)

type TraceParam struct {
	ServiceName     string    // 服务名称
	ServiceVersion  string    // 版本号，避免服务版本不一致问题
	ServiceInstance string    // 示例标识，pod id或者ip:port之类的
	Environment     string    // dev, test, prod之类
	Endpoint        string    // host:port，为空时输出到Writer
	Protocol        string    // http或者grpc
	EnableTLS       bool      //是否使用ssl
	SampleRate      float64   //默认为1
	Writer          io.Writer //Endpoint为空时的输出，默认stdout
}
