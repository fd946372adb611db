// Package config loads taskexec settings from a YAML file and TASKEXEC_*
// environment variables using viper, and builds worker pools, serial
// executors and scheduler configurations from them.
//
// Example file:
//
//	defaults:
//	  maxWorkers: 4
//	  idleTimeout: 30s
//	pools:
//	  io:
//	    maxWorkers: 16
//	    maxQueueSize: 1000
//	  events:
//	    serial: true
//	metrics:
//	  enabled: true
//	  listen: ":9090"
//	log:
//	  level: info
//	  format: json
//
// Pool fields left unset take their value from defaults. Environment
// variables override scalar keys, e.g. TASKEXEC_DEFAULTS_MAXWORKERS=8 or
// TASKEXEC_LOG_LEVEL=debug. A pool with no fields set is ignored, so give
// every pool at least one field.
package config
