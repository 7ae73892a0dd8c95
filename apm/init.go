package apm

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"time"

	"github.com/YiuTerran/go-director/base/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"
)

/**
  *  @author tryao
  *  @date 2022/12/07 16:52
**/

// InitProvider 初始化并返回provider，同时设置为全局provider
func InitProvider(param TraceParam, logger log.Logger) (*sdktrace.TracerProvider, error) {
	if param.ServiceName == "" || param.ServiceVersion == "" {
		return nil, fmt.Errorf("invalid service param to init tracer")
	}
	if logger == nil {
		logger = log.Nop()
	}
	//如果是k8s环境，应当使用pod id
	//非k8s环境，一般用ip地址+端口
	if param.ServiceInstance == "" {
		param.ServiceInstance = uuid.NewString()
	}
	//默认是生产环境
	if param.Environment == "" {
		param.Environment = "prod"
	}
	if param.SampleRate <= 0 {
		param.SampleRate = 1
	}
	ctx := context.Background()
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(param.ServiceName),
			semconv.ServiceVersionKey.String(param.ServiceVersion),
			semconv.ServiceInstanceIDKey.String(param.ServiceInstance),
			semconv.DeploymentEnvironmentKey.String(param.Environment),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
		resource.WithSchemaURL(semconv.SchemaURL),
	)
	if err != nil {
		return nil, fmt.Errorf("fail to create resource:%w", err)
	}
	exporter, err := newExporter(ctx, param)
	if err != nil {
		return nil, err
	}
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(
			sdktrace.ParentBased(sdktrace.TraceIDRatioBased(param.SampleRate)),
		),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		logger.Warn("apm error:%s", err)
	}))
	return traceProvider, nil
}

func newExporter(ctx context.Context, param TraceParam) (sdktrace.SpanExporter, error) {
	switch {
	case param.Endpoint == "":
		//兜底策略，控制台输出
		w := param.Writer
		if w == nil {
			w = os.Stdout
		}
		return stdouttrace.New(stdouttrace.WithWriter(w))
	case param.Protocol == ProtocolGRPC:
		//连接collector超时时间
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(param.Endpoint)}
		if !param.EnableTLS {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("fail to create grpc exporter:%w", err)
		}
		return exporter, nil
	default:
		var tlsConf otlptracehttp.Option
		if param.EnableTLS {
			tlsConf = otlptracehttp.WithTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
		} else {
			tlsConf = otlptracehttp.WithInsecure()
		}
		exporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(param.Endpoint),
			tlsConf,
		)
		if err != nil {
			return nil, fmt.Errorf("fail to create http exporter:%w", err)
		}
		return exporter, nil
	}
}

// GinTracer trace中间件，provider为nil时使用全局的
func GinTracer(serviceName string, provider trace.TracerProvider) gin.HandlerFunc {
	if provider == nil {
		return otelgin.Middleware(serviceName)
	}
	return otelgin.Middleware(serviceName, otelgin.WithTracerProvider(provider))
}

// SetGinTracer 给gin加上trace中间件，需要在注册路由之前调用
func SetGinTracer(serviceName string, server *gin.Engine, provider trace.TracerProvider) {
	server.Use(GinTracer(serviceName, provider))
}
