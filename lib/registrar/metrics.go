package registrar

import "go.opentelemetry.io/otel"

var meter = otel.Meter("utregister.lib.registrar")
var nonceGauge, _ = meter.Int64Gauge("nonce_pool_size")
var actionCounter, _ = meter.Int64Counter("registrar_actions")
