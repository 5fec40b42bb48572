package observability

import (
	"context"
	"time"

	"github.com/annel0/voxel-editor/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName имя трейсера пакетов редактора
const InstrumentationName = "github.com/annel0/voxel-editor"

// InitTelemetry настраивает OTLP экспортер и устанавливает глобальный TracerProvider.
// Возвращает функцию shutdown, которую нужно вызвать при завершении приложения.
// При enabled=false провайдер не меняется (глобальный noop) и shutdown ничего не делает.
func InitTelemetry(ctx context.Context, serviceName string, enabled bool) (func(context.Context) error, error) {
	if !enabled {
		logging.Debug("OpenTelemetry отключён")
		return func(context.Context) error { return nil }, nil
	}

	// OTLP HTTP экспортер (по умолчанию localhost:4318, OTEL_EXPORTER_OTLP_ENDPOINT)
	exp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	logging.Info("📡 OpenTelemetry инициализирован (OTLP → 4318, service=%s)", serviceName)

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}
	return shutdown, nil
}

// Tracer возвращает трейсер глобального провайдера
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}
