/*
Package observability exports engine events as Prometheus metrics.

Metrics implements ports.MetricsRecorder; hand it to the composer and the validator
(or to the Guard) and expose its registry through Handler.
*/
package observability
