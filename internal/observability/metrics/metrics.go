package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	loanOriginations metric.Int64Counter
	loanRenewals     metric.Int64Counter
	paymentsRecorded metric.Int64Counter
	balanceRecalcs   metric.Int64Counter
	reportsGenerated metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "credia"
	}
	meter := provider.Meter(name)

	loanOriginations, err := meter.Int64Counter("credia_loan_originations_total")
	if err != nil {
		return nil, err
	}
	loanRenewals, err := meter.Int64Counter("credia_loan_renewals_total")
	if err != nil {
		return nil, err
	}
	paymentsRecorded, err := meter.Int64Counter("credia_payments_recorded_total")
	if err != nil {
		return nil, err
	}
	balanceRecalcs, err := meter.Int64Counter("credia_balance_recalculations_total")
	if err != nil {
		return nil, err
	}
	reportsGenerated, err := meter.Int64Counter("credia_reports_generated_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		loanOriginations: loanOriginations,
		loanRenewals:     loanRenewals,
		paymentsRecorded: paymentsRecorded,
		balanceRecalcs:   balanceRecalcs,
		reportsGenerated: reportsGenerated,
	}, nil
}

// RecordLoanOrigination increments origination counts.
func (m *Metrics) RecordLoanOrigination(ctx context.Context, routeID string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("route_id", strings.TrimSpace(routeID)))
	m.loanOriginations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLoanRenewal increments renewal counts.
func (m *Metrics) RecordLoanRenewal(ctx context.Context, routeID string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("route_id", strings.TrimSpace(routeID)))
	m.loanRenewals.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPayment increments payment counts.
func (m *Metrics) RecordPayment(ctx context.Context, method string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("payment_method", strings.TrimSpace(method)))
	m.paymentsRecorded.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBalanceRecalculation increments ledger recalculation counts.
func (m *Metrics) RecordBalanceRecalculation(ctx context.Context, accountType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("account_type", strings.TrimSpace(accountType)))
	m.balanceRecalcs.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReportGenerated increments generated report counts.
func (m *Metrics) RecordReportGenerated(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("report_kind", strings.TrimSpace(kind)))
	m.reportsGenerated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"route_id":       {},
	"account_type":   {},
	"payment_method": {},
	"report_kind":    {},
	"status_code":    {},
	"endpoint":       {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
