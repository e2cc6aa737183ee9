// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package api

import "net/http"

// Health returns 200 when healthy and 503 otherwise, with the report as data
// in both cases.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	report := h.health.Check(r.Context())
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	respondSuccess(w, r, status, report)
}

// Root describes the service.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, h.info)
}
