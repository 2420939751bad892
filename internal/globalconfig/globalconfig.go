// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

// Package globalconfig stores process-wide values: the service name/env/version
// recorded when a Tracer starts, and a stable per-process runtime id sent with
// every batch to disambiguate traces from the same host.
package globalconfig

import (
	"sync"

	"github.com/google/uuid"
)

var cfg = &config{
	runtimeID: uuid.New().String(),
}

type config struct {
	mu         sync.RWMutex
	serviceName string
	env         string
	version     string
	runtimeID   string
}

// ServiceName returns the process-wide default service name.
func ServiceName() string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	return cfg.serviceName
}

// SetServiceName sets the global default service name.
func SetServiceName(name string) {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()
	cfg.serviceName = name
}

// Env returns the process-wide default environment name.
func Env() string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	return cfg.env
}

// SetEnv sets the global default environment name.
func SetEnv(env string) {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()
	cfg.env = env
}

// Version returns the process-wide default service version.
func Version() string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	return cfg.version
}

// SetVersion sets the global default service version.
func SetVersion(version string) {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()
	cfg.version = version
}

// RuntimeID returns this process's unique runtime id, generated once at
// process start.
func RuntimeID() string {
	return cfg.runtimeID
}
